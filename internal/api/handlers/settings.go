package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/api/dto"
	"github.com/hugh/flow/internal/api/middleware"
	"github.com/hugh/flow/internal/settings"
)

type SettingsHandler struct {
	settings   *settings.Service
	authorizer Authorizer
	logger     *slog.Logger
}

func NewSettingsHandler(s *settings.Service, authorizer Authorizer, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: s, authorizer: authorizer, logger: logger}
}

// Limits handles GET /api/v1/settings/limits
func (h *SettingsHandler) Limits(w http.ResponseWriter, r *http.Request) {
	if err := h.authorizer.Authorize(r.Context(), middleware.GetActor(r.Context()), access.ActionRead, access.Settings()); err != nil {
		writeError(w, h.logger, err, "Failed to load settings")
		return
	}
	limits, err := h.settings.Limits(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "Failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, limits)
}

// UpdateLimits handles PUT /api/v1/settings/limits
func (h *SettingsHandler) UpdateLimits(w http.ResponseWriter, r *http.Request) {
	if err := h.authorizer.Authorize(r.Context(), middleware.GetActor(r.Context()), access.ActionUpdate, access.Settings()); err != nil {
		writeError(w, h.logger, err, "Failed to save settings")
		return
	}
	var req dto.LimitsRequest
	if !decode(w, r, &req) {
		return
	}

	limits, err := h.settings.SaveLimits(r.Context(), req.Limits())
	if err != nil {
		writeError(w, h.logger, err, "Failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, limits)
}
