package api

import (
	"net/http"

	"github.com/sparkmates/sparkmates/internal/db"
	"github.com/sparkmates/sparkmates/internal/service"
)

func (h *Handler) handleGetProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projects, err := h.svc.Projects.GetAll(r.Context(), service.ProjectFilter{
		Status:   db.ProjectStatus(q.Get("status")),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in service.ProjectInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	in.CreatorID = currentUserID(r)
	if len(in.Members) == 0 {
		in.Members = []db.Member{{UserID: in.CreatorID, Role: "owner"}}
	}
	project, err := h.svc.Projects.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, found, err := h.svc.Projects.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// memberProject loads the project for a mutation and writes 404 or 403
// when the caller may not change it.
func (h *Handler) memberProject(w http.ResponseWriter, r *http.Request) (db.Project, bool) {
	project, found, err := h.svc.Projects.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return db.Project{}, false
	}
	if !found {
		writeError(w, http.StatusNotFound, "project not found")
		return db.Project{}, false
	}
	if !project.HasMember(currentUserID(r)) {
		writeError(w, http.StatusForbidden, "not a project member")
		return db.Project{}, false
	}
	return project, true
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var m db.Member
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	project, ok := h.memberProject(w, r)
	if !ok {
		return
	}
	if m.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	if _, found, err := h.svc.Users.GetByID(r.Context(), m.UserID); err != nil {
		h.writeServiceError(w, r, err)
		return
	} else if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	project, err := h.svc.Projects.AddMember(r.Context(), project.ID, m)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *Handler) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var in service.TaskInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	project, ok := h.memberProject(w, r)
	if !ok {
		return
	}
	task, err := h.svc.Projects.AddTask(r.Context(), project.ID, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status db.TaskStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	project, ok := h.memberProject(w, r)
	if !ok {
		return
	}
	task, err := h.svc.Projects.UpdateTaskStatus(r.Context(), project.ID, r.PathValue("taskId"), req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
