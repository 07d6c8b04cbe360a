package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sparkmates/sparkmates/internal/auth"
	"github.com/sparkmates/sparkmates/internal/service"
)

type Handler struct {
	svc  *service.Service
	auth *auth.Manager
	log  logrus.FieldLogger
	// cookieMaxAge is the lifetime of the session cookie in seconds.
	cookieMaxAge int
}

func New(svc *service.Service, mgr *auth.Manager, log logrus.FieldLogger, cookieMaxAge int) *Handler {
	return &Handler{svc: svc, auth: mgr, log: log, cookieMaxAge: cookieMaxAge}
}

// Routes returns the API with request logging applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h.logRequests(mux)
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Auth (public)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.HandleFunc("GET /api/auth/me", h.handleMe)

	// Authenticated routes
	app := http.NewServeMux()
	app.HandleFunc("PUT /api/user", h.handleUpdateUser)

	// Users
	app.HandleFunc("GET /api/users/{id}", h.handleGetUser)
	app.HandleFunc("GET /api/users/{id}/ideas", h.handleGetUserIdeas)
	app.HandleFunc("GET /api/users/{id}/projects", h.handleGetUserProjects)

	// Ideas
	app.HandleFunc("GET /api/ideas", h.handleGetIdeas)
	app.HandleFunc("POST /api/ideas", h.handleCreateIdea)
	app.HandleFunc("GET /api/ideas/{id}", h.handleGetIdea)
	app.HandleFunc("POST /api/ideas/{id}/like", h.handleLikeIdea)
	app.HandleFunc("GET /api/ideas/{id}/comments", h.handleGetComments)
	app.HandleFunc("POST /api/ideas/{id}/comments", h.handleCreateComment)

	// Projects
	app.HandleFunc("GET /api/projects", h.handleGetProjects)
	app.HandleFunc("POST /api/projects", h.handleCreateProject)
	app.HandleFunc("GET /api/projects/{id}", h.handleGetProject)
	app.HandleFunc("POST /api/projects/{id}/members", h.handleAddMember)
	app.HandleFunc("POST /api/projects/{id}/tasks", h.handleAddTask)
	app.HandleFunc("PUT /api/projects/{id}/tasks/{taskId}", h.handleUpdateTask)

	// Messages
	app.HandleFunc("GET /api/messages", h.handleGetMessages)
	app.HandleFunc("POST /api/messages", h.handleSendMessage)
	app.HandleFunc("PUT /api/messages/{id}/read", h.handleMarkMessageRead)
	app.HandleFunc("GET /api/messages/unread-count", h.handleUnreadMessages)
	app.HandleFunc("GET /api/conversations", h.handleGetConversations)
	app.HandleFunc("GET /api/conversations/{id}/messages", h.handleGetConversationMessages)
	app.HandleFunc("PUT /api/conversations/{id}/read", h.handleMarkConversationRead)

	// Notifications
	app.HandleFunc("GET /api/notifications", h.handleGetNotifications)
	app.HandleFunc("GET /api/notifications/unread-count", h.handleUnreadNotifications)
	app.HandleFunc("PUT /api/notifications/{id}/read", h.handleMarkNotificationRead)
	app.HandleFunc("PUT /api/notifications/read-all", h.handleMarkAllNotificationsRead)

	app.HandleFunc("GET /api/dashboard", h.handleDashboard)

	mux.Handle("/api/", h.requireSession(app))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeServiceError maps domain errors to status codes. Anything unknown is
// logged and reported as an internal error.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidVisibility),
		errors.Is(err, service.ErrInvalidNotificationType),
		errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "not a participant")
	case errors.Is(err, service.ErrNotRecipient):
		writeError(w, http.StatusForbidden, "not a recipient")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, auth.ErrAuthInProgress), errors.Is(err, auth.ErrLoggedOut):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
