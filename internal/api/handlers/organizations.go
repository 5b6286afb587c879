package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/flow/internal/api/dto"
	"github.com/hugh/flow/internal/api/middleware"
	"github.com/hugh/flow/internal/orgs"
)

type OrganizationHandler struct {
	service *orgs.Service
	logger  *slog.Logger
}

func NewOrganizationHandler(service *orgs.Service, logger *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{service: service, logger: logger}
}

func summaries(list []orgs.Summary) []dto.OrganizationResponse {
	out := make([]dto.OrganizationResponse, len(list))
	for i := range list {
		out[i] = dto.NewOrganizationResponse(&list[i])
	}
	return out
}

// List handles GET /api/v1/organizations. With ?all=true a SUPER_ADMIN sees
// every organization instead of the visible ones.
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	var (
		list []orgs.Summary
		err  error
	)
	if r.URL.Query().Get("all") == "true" {
		list, err = h.service.ListAll(r.Context(), actor)
	} else {
		list, err = h.service.List(r.Context(), actor)
	}
	if err != nil {
		writeError(w, h.logger, err, "Failed to list organizations")
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: summaries(list), Total: len(list)})
}

// Create handles POST /api/v1/organizations
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrganizationRequest
	if !decode(w, r, &req) {
		return
	}

	org, err := h.service.Create(r.Context(), middleware.GetActor(r.Context()), orgs.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		OrgAdminID:  req.OrgAdminID,
	})
	if err != nil {
		writeError(w, h.logger, err, "Failed to create organization")
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewOrganizationResponse(org))
}

// Get handles GET /api/v1/organizations/{orgID}
func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orgID", "organization")
	if !ok {
		return
	}
	org, err := h.service.Get(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get organization")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewOrganizationResponse(org))
}

// Update handles PUT /api/v1/organizations/{orgID}
func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orgID", "organization")
	if !ok {
		return
	}
	var req dto.UpdateOrganizationRequest
	if !decode(w, r, &req) {
		return
	}

	org, err := h.service.Update(r.Context(), middleware.GetActor(r.Context()), id, orgs.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		OrgAdminID:  req.OrgAdminID,
		IsActive:    req.IsActive,
	})
	if err != nil {
		writeError(w, h.logger, err, "Failed to update organization")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewOrganizationResponse(org))
}

// Delete handles DELETE /api/v1/organizations/{orgID}
func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orgID", "organization")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		writeError(w, h.logger, err, "Failed to delete organization")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Members handles GET /api/v1/organizations/{orgID}/members
func (h *OrganizationHandler) Members(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orgID", "organization")
	if !ok {
		return
	}
	members, err := h.service.Members(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to list members")
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: members, Total: len(members)})
}

// AddMember handles POST /api/v1/organizations/{orgID}/members
func (h *OrganizationHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orgID", "organization")
	if !ok {
		return
	}
	var req dto.AddMemberRequest
	if !decode(w, r, &req) {
		return
	}

	m, err := h.service.AddMember(r.Context(), middleware.GetActor(r.Context()), id, req.UserID, req.Role)
	if err != nil {
		writeError(w, h.logger, err, "Failed to add member")
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewOrgMembershipResponse(m))
}

// CreateMember handles POST /api/v1/organizations/{orgID}/users: a new
// account created directly inside the organization.
func (h *OrganizationHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orgID", "organization")
	if !ok {
		return
	}
	var req dto.CreateMemberRequest
	if !decode(w, r, &req) {
		return
	}

	m, err := h.service.CreateMember(r.Context(), middleware.GetActor(r.Context()), id, orgs.NewMemberInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		writeError(w, h.logger, err, "Failed to create member")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// RemoveMember handles DELETE /api/v1/organizations/{orgID}/members/{userID}
func (h *OrganizationHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "orgID", "organization")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}
	if err := h.service.RemoveMember(r.Context(), middleware.GetActor(r.Context()), orgID, userID); err != nil {
		writeError(w, h.logger, err, "Failed to remove member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/v1/organizations/{orgID}/stats
func (h *OrganizationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orgID", "organization")
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to load organization stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// MyStats handles GET /api/v1/organizations/mine/stats for the actor's own
// organization.
func (h *OrganizationHandler) MyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.MyStats(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "Failed to load organization stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
