package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/api/dto"
	"github.com/hugh/flow/internal/api/middleware"
	"github.com/hugh/flow/internal/events"
)

type Authorizer interface {
	Authorize(ctx context.Context, actor access.Actor, action access.Action, res access.Resource) error
}

// WebhookHandler serves an organization's webhook configuration. The
// config store does no access checks of its own.
type WebhookHandler struct {
	configs    *events.WebhookConfigs
	authorizer Authorizer
	logger     *slog.Logger
}

func NewWebhookHandler(configs *events.WebhookConfigs, authorizer Authorizer, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{configs: configs, authorizer: authorizer, logger: logger}
}

// Get handles GET /api/v1/organizations/{orgID}/webhook
func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "orgID", "organization")
	if !ok {
		return
	}
	if err := h.authorizer.Authorize(r.Context(), middleware.GetActor(r.Context()), access.ActionRead, access.Webhook(orgID)); err != nil {
		writeError(w, h.logger, err, "Failed to get webhook")
		return
	}

	view, err := h.configs.Get(r.Context(), orgID)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get webhook")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Update handles PUT /api/v1/organizations/{orgID}/webhook
func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "orgID", "organization")
	if !ok {
		return
	}
	if err := h.authorizer.Authorize(r.Context(), middleware.GetActor(r.Context()), access.ActionUpdate, access.Webhook(orgID)); err != nil {
		writeError(w, h.logger, err, "Failed to update webhook")
		return
	}
	var req dto.WebhookRequest
	if !decode(w, r, &req) {
		return
	}

	view, err := h.configs.Save(r.Context(), orgID, events.WebhookInput{
		URL:         req.URL,
		SecretKey:   req.SecretKey,
		IsActive:    req.IsActive,
		EventTypes:  req.EventTypes,
		TargetRoles: req.TargetRoles,
	})
	if err != nil {
		writeError(w, h.logger, err, "Failed to update webhook")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
