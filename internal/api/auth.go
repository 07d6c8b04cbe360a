package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sparkmates/sparkmates/internal/auth"
	"github.com/sparkmates/sparkmates/internal/db"
)

type authResponse struct {
	Token    string  `json:"token"`
	User     db.User `json:"user"`
	Redirect string  `json:"redirect"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sess := h.auth.NewSession()
	user, err := sess.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.issueToken(w, r, sess, user)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}
	sess := h.auth.NewSession()
	user, err := sess.Register(r.Context(), strings.TrimSpace(req.Name), email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.issueToken(w, r, sess, user)
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request, sess *auth.Session, user db.User) {
	token, err := h.auth.SignToken(sess)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	auth.SetSessionCookie(w, token, h.cookieMaxAge)
	writeJSON(w, http.StatusOK, authResponse{
		Token:    token,
		User:     user,
		Redirect: "/dashboard",
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.resolveSession(r)
	if err == nil {
		if err := sess.Logout(r.Context()); err != nil {
			h.log.WithError(err).Warn("logout")
		}
	} else if !errors.Is(err, auth.ErrInvalidToken) {
		h.log.WithError(err).Warn("logout")
	}
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, err := h.resolveSession(r)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	user, _ := sess.User()
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch auth.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	user, ok, err := currentSession(r).UpdateUser(r.Context(), patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, found, err := h.svc.Users.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleGetUserIdeas(w http.ResponseWriter, r *http.Request) {
	ideas, err := h.svc.Ideas.GetByUser(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	viewer := currentUserID(r)
	visible := make([]db.Idea, 0, len(ideas))
	for _, idea := range ideas {
		if idea.Visibility == db.VisibilityPublic || idea.IsCollaborator(viewer) {
			visible = append(visible, idea)
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

func (h *Handler) handleGetUserProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.Projects.GetByUser(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}
