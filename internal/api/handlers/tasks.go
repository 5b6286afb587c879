package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/flow/internal/api/dto"
	"github.com/hugh/flow/internal/api/middleware"
	"github.com/hugh/flow/internal/api/validation"
	"github.com/hugh/flow/internal/tasks"
)

type TaskHandler struct {
	service *tasks.Service
	logger  *slog.Logger
}

func NewTaskHandler(service *tasks.Service, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{service: service, logger: logger}
}

// List handles GET /api/v1/projects/{projectID}/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	list, err := h.service.ListByProject(r.Context(), middleware.GetActor(r.Context()), projectID)
	if err != nil {
		writeError(w, h.logger, err, "Failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: dto.NewTaskResponses(list), Total: len(list)})
}

// Create handles POST /api/v1/projects/{projectID}/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	var req dto.CreateTaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.service.Create(r.Context(), middleware.GetActor(r.Context()), projectID, req.Input())
	if err != nil {
		writeError(w, h.logger, err, "Failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewTaskResponse(task))
}

// Get handles GET /api/v1/tasks/{taskID}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "taskID", "task")
	if !ok {
		return
	}
	task, err := h.service.Get(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get task")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// Update handles PUT /api/v1/tasks/{taskID}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "taskID", "task")
	if !ok {
		return
	}
	var req dto.UpdateTaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.service.Update(r.Context(), middleware.GetActor(r.Context()), id, req.Input())
	if err != nil {
		writeError(w, h.logger, err, "Failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// UpdateStatus handles PUT /api/v1/tasks/{taskID}/status
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "taskID", "task")
	if !ok {
		return
	}
	var req dto.TaskStatusRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.service.UpdateStatus(r.Context(), middleware.GetActor(r.Context()), id, req.Status)
	if err != nil {
		writeError(w, h.logger, err, "Failed to update task status")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// Assign handles PUT /api/v1/tasks/{taskID}/assign
func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "taskID", "task")
	if !ok {
		return
	}
	var req dto.AssignRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.service.Assign(r.Context(), middleware.GetActor(r.Context()), id, req.AssigneeID)
	if err != nil {
		writeError(w, h.logger, err, "Failed to assign task")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// Delete handles DELETE /api/v1/tasks/{taskID}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "taskID", "task")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		writeError(w, h.logger, err, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Comments handles GET /api/v1/tasks/{taskID}/comments
func (h *TaskHandler) Comments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "taskID", "task")
	if !ok {
		return
	}
	comments, err := h.service.Comments(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to list comments")
		return
	}
	out := make([]dto.CommentResponse, len(comments))
	for i := range comments {
		out[i] = dto.NewCommentResponse(&comments[i])
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: out, Total: len(out)})
}

// Comment handles POST /api/v1/tasks/{taskID}/comments
func (h *TaskHandler) Comment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "taskID", "task")
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !decode(w, r, &req) {
		return
	}

	body := validation.SanitizeString(req.Body)
	c, err := h.service.Comment(r.Context(), middleware.GetActor(r.Context()), id, body)
	if err != nil {
		writeError(w, h.logger, err, "Failed to add comment")
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewCommentResponse(c))
}
