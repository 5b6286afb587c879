package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/flow/internal/api/dto"
	"github.com/hugh/flow/internal/api/middleware"
	"github.com/hugh/flow/internal/api/validation"
	"github.com/hugh/flow/internal/projects"
)

type ProjectHandler struct {
	service *projects.Service
	logger  *slog.Logger
}

func NewProjectHandler(service *projects.Service, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{service: service, logger: logger}
}

// List handles GET /api/v1/projects and GET /api/v1/organizations/{orgID}/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	var orgID int64
	if r.URL.Query().Has("organization_id") || hasURLParam(r, "orgID") {
		id, ok := orgParam(w, r)
		if !ok {
			return
		}
		orgID = id
	}

	list, err := h.service.List(r.Context(), middleware.GetActor(r.Context()), orgID)
	if err != nil {
		writeError(w, h.logger, err, "Failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: dto.NewProjectResponses(list), Total: len(list)})
}

// Create handles POST /api/v1/organizations/{orgID}/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "orgID", "organization")
	if !ok {
		return
	}
	var req dto.CreateProjectRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), middleware.GetActor(r.Context()), orgID, req.Input())
	if err != nil {
		writeError(w, h.logger, err, "Failed to create project")
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewProjectResponse(p))
}

// Get handles GET /api/v1/projects/{projectID}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get project")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewProjectResponse(p))
}

// Update handles PUT /api/v1/projects/{projectID}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	var req dto.UpdateProjectRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), middleware.GetActor(r.Context()), id, req.Input())
	if err != nil {
		writeError(w, h.logger, err, "Failed to update project")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewProjectResponse(p))
}

// UpdateStatus handles PUT /api/v1/projects/{projectID}/status
func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	var req dto.ProjectStatusRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.service.UpdateStatus(r.Context(), middleware.GetActor(r.Context()), id, *req.IsActive)
	if err != nil {
		writeError(w, h.logger, err, "Failed to update project status")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewProjectResponse(p))
}

// Delete handles DELETE /api/v1/projects/{projectID}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		writeError(w, h.logger, err, "Failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Members handles GET /api/v1/projects/{projectID}/members
func (h *ProjectHandler) Members(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	members, err := h.service.Members(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to list project members")
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: members, Total: len(members)})
}

// AddMember handles POST /api/v1/projects/{projectID}/members
func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	var req dto.ProjectMemberRequest
	if !decode(w, r, &req) {
		return
	}

	m, err := h.service.AddMember(r.Context(), middleware.GetActor(r.Context()), id, req.UserID, req.Role)
	if err != nil {
		writeError(w, h.logger, err, "Failed to add project member")
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewProjectMembershipResponse(m))
}

// Feedback handles POST /api/v1/projects/{projectID}/feedback
func (h *ProjectHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	var req dto.FeedbackRequest
	if !decode(w, r, &req) {
		return
	}

	message := validation.TruncateString(validation.SanitizeString(req.Message), validation.MaxTextLength)
	n, err := h.service.Feedback(r.Context(), middleware.GetActor(r.Context()), id, message)
	if err != nil {
		writeError(w, h.logger, err, "Failed to send feedback")
		return
	}
	if n == nil {
		writeJSON(w, http.StatusAccepted, dto.SuccessResponse{Message: "Project has no manager to notify"})
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewNotificationResponse(n))
}

// RequestMeeting handles POST /api/v1/projects/{projectID}/meetings
func (h *ProjectHandler) RequestMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	var req dto.MeetingRequest
	if !decode(w, r, &req) {
		return
	}

	meeting, err := h.service.RequestMeeting(r.Context(), middleware.GetActor(r.Context()), id, projects.MeetingInput{
		Title:       validation.SanitizeString(req.Title),
		Description: validation.TruncateString(validation.SanitizeString(req.Description), validation.MaxTextLength),
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		writeError(w, h.logger, err, "Failed to request meeting")
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewMeetingResponse(meeting))
}
