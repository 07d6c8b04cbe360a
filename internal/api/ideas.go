package api

import (
	"net/http"
	"strings"

	"github.com/sparkmates/sparkmates/internal/db"
	"github.com/sparkmates/sparkmates/internal/service"
)

func (h *Handler) handleGetIdeas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order := service.SortOrder(q.Get("sort"))
	if order != "" && !order.Valid() {
		writeError(w, http.StatusBadRequest, "invalid sort")
		return
	}
	ideas, err := h.svc.Ideas.GetAll(r.Context(), service.IdeaFilter{
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Search:   q.Get("search"),
		Viewer:   currentUserID(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if order != "" {
		ideas = service.Sort(ideas, order)
	}
	writeJSON(w, http.StatusOK, ideas)
}

func (h *Handler) handleCreateIdea(w http.ResponseWriter, r *http.Request) {
	var in service.IdeaInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	in.UserID = currentUserID(r)
	idea, err := h.svc.Ideas.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idea)
}

// visibleIdea writes a 404 and reports false when the idea is missing or
// private to someone else.
func (h *Handler) visibleIdea(w http.ResponseWriter, r *http.Request) (db.Idea, bool) {
	idea, found, err := h.svc.Ideas.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return db.Idea{}, false
	}
	if !found || (idea.Visibility == db.VisibilityPrivate && !idea.IsCollaborator(currentUserID(r))) {
		writeError(w, http.StatusNotFound, "idea not found")
		return db.Idea{}, false
	}
	return idea, true
}

func (h *Handler) handleGetIdea(w http.ResponseWriter, r *http.Request) {
	idea, ok := h.visibleIdea(w, r)
	if !ok {
		return
	}
	idea, err := h.svc.Ideas.View(r.Context(), idea.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

func (h *Handler) handleLikeIdea(w http.ResponseWriter, r *http.Request) {
	idea, ok := h.visibleIdea(w, r)
	if !ok {
		return
	}
	idea, err := h.svc.Ideas.Like(r.Context(), idea.ID, currentUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

func (h *Handler) handleGetComments(w http.ResponseWriter, r *http.Request) {
	idea, ok := h.visibleIdea(w, r)
	if !ok {
		return
	}
	comments, err := h.svc.Ideas.Comments(r.Context(), idea.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *Handler) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	idea, ok := h.visibleIdea(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Ideas.AddComment(r.Context(), idea.ID, currentUserID(r), strings.TrimSpace(req.Content))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
