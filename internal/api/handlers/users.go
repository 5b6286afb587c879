package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/flow/internal/api/dto"
	"github.com/hugh/flow/internal/api/middleware"
	"github.com/hugh/flow/internal/users"
)

type UserHandler struct {
	service *users.Service
	logger  *slog.Logger
}

func NewUserHandler(service *users.Service, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

func userViews(list []users.View) []dto.UserDetailResponse {
	out := make([]dto.UserDetailResponse, len(list))
	for i := range list {
		out[i] = dto.NewUserDetailResponse(&list[i])
	}
	return out
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: userViews(list), Total: len(list)})
}

// ByRole handles GET /api/v1/users/role/{role}
func (h *UserHandler) ByRole(w http.ResponseWriter, r *http.Request) {
	role := strings.ToUpper(chi.URLParam(r, "role"))
	list, err := h.service.ByRole(r.Context(), middleware.GetActor(r.Context()), role)
	if err != nil {
		writeError(w, h.logger, err, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: userViews(list), Total: len(list)})
}

// Roles handles GET /api/v1/users/roles
func (h *UserHandler) Roles(w http.ResponseWriter, r *http.Request) {
	roles := users.Roles()
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: roles, Total: len(roles)})
}

// Get handles GET /api/v1/users/{userID}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserDetailResponse(view))
}

// Create handles POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.service.Create(r.Context(), middleware.GetActor(r.Context()), users.CreateInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Roles:     req.Roles,
	})
	if err != nil {
		writeError(w, h.logger, err, "Failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, userDTO(user))
}

// Update handles PUT /api/v1/users/{userID}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.service.Update(r.Context(), middleware.GetActor(r.Context()), id, users.UpdateInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
		Roles:     req.Roles,
	})
	if err != nil {
		writeError(w, h.logger, err, "Failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, userDTO(user))
}

// SetStatus handles PATCH /api/v1/users/{userID}/status
func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}
	var req dto.UserStatusRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.service.SetActive(r.Context(), middleware.GetActor(r.Context()), id, *req.IsActive)
	if err != nil {
		writeError(w, h.logger, err, "Failed to update user status")
		return
	}
	writeJSON(w, http.StatusOK, userDTO(user))
}

// Delete handles DELETE /api/v1/users/{userID}. Accounts are deactivated,
// never removed.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		writeError(w, h.logger, err, "Failed to deactivate user")
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "User deactivated"})
}

// AssignRoles handles PUT /api/v1/users/{userID}/roles
func (h *UserHandler) AssignRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}
	var req dto.AssignRolesRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.service.AssignRoles(r.Context(), middleware.GetActor(r.Context()), id, req.Roles)
	if err != nil {
		writeError(w, h.logger, err, "Failed to assign roles")
		return
	}
	writeJSON(w, http.StatusOK, userDTO(user))
}

// ResetPassword handles PUT /api/v1/users/{userID}/password
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}
	var req dto.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), middleware.GetActor(r.Context()), id, req.Password); err != nil {
		writeError(w, h.logger, err, "Failed to reset password")
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Password updated"})
}

// ChangePassword handles PUT /api/v1/auth/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.service.ChangePassword(r.Context(), middleware.GetActor(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeError(w, h.logger, err, "Failed to change password")
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Password updated"})
}
