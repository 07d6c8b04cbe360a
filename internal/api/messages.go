package api

import (
	"net/http"
	"strings"

	"github.com/sparkmates/sparkmates/internal/service"
)

func (h *Handler) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.Messages.GetMessages(r.Context(), currentUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var in service.MessageInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	in.SenderID = currentUserID(r)
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}
	msg, err := h.svc.Messages.Send(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleMarkMessageRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Messages.MarkRead(r.Context(), r.PathValue("id"), currentUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *Handler) handleUnreadMessages(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Messages.GetUnreadCount(r.Context(), currentUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) handleGetConversations(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.Messages.Conversations(r.Context(), currentUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleGetConversationMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.Messages.ForParticipant(r.Context(), r.PathValue("id"), currentUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) handleMarkConversationRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Messages.MarkConversationRead(r.Context(), r.PathValue("id"), currentUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

// Notifications

func (h *Handler) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.svc.Notifications.GetByUser(r.Context(), currentUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *Handler) handleUnreadNotifications(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notifications.GetUnreadCount(r.Context(), currentUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notifications.MarkRead(r.Context(), r.PathValue("id"), currentUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *Handler) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notifications.MarkAllRead(r.Context(), currentUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Dashboard(r.Context(), currentUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
