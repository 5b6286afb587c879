package dto

import (
	"time"

	"github.com/hugh/flow/internal/api/validation"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/settings"
)

type NotificationResponse struct {
	ID                string    `json:"id"`
	Type              string    `json:"type"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	RelatedEntityType string    `json:"related_entity_type,omitempty"`
	RelatedEntityID   *string   `json:"related_entity_id,omitempty"`
	IsRead            bool      `json:"is_read"`
	CreatedAt         time.Time `json:"created_at"`
}

func NewNotificationResponse(n *models.NotificationEvent) NotificationResponse {
	resp := NotificationResponse{
		ID:                FormatID(n.ID),
		Type:              n.Type,
		Title:             n.Title,
		Message:           n.Message,
		RelatedEntityType: n.RelatedEntityType,
		IsRead:            n.IsRead,
		CreatedAt:         n.CreatedAt,
	}
	if n.RelatedEntityID != 0 {
		resp.RelatedEntityID = formatOptionalID(&n.RelatedEntityID)
	}
	return resp
}

func NewNotificationResponses(ns []models.NotificationEvent) []NotificationResponse {
	out := make([]NotificationResponse, len(ns))
	for i := range ns {
		out[i] = NewNotificationResponse(&ns[i])
	}
	return out
}

// WebhookRequest replaces an organization's webhook. Omitting secret_key
// keeps the stored one.
type WebhookRequest struct {
	URL         string   `json:"url"`
	SecretKey   *string  `json:"secret_key,omitempty"`
	IsActive    bool     `json:"is_active"`
	EventTypes  []string `json:"event_types"`
	TargetRoles []string `json:"target_roles"`
}

func (r WebhookRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.URL == "" {
		errors["url"] = "URL is required"
	} else if !validation.IsValidURL(r.URL) {
		errors["url"] = "URL must be an absolute http(s) URL"
	}
	return errors
}

type LimitsRequest struct {
	MaxUsersPerOrganization    int `json:"maxUsersPerOrganization"`
	MaxProjectsPerOrganization int `json:"maxProjectsPerOrganization"`
	MaxMembersPerProject       int `json:"maxMembersPerProject"`
	MaxTasksPerProject         int `json:"maxTasksPerProject"`
}

func (r LimitsRequest) Validate() map[string]string {
	errors := make(map[string]string)
	check := func(field string, v int) {
		if v <= 0 {
			errors[field] = "Must be a positive integer"
		}
	}
	check("maxUsersPerOrganization", r.MaxUsersPerOrganization)
	check("maxProjectsPerOrganization", r.MaxProjectsPerOrganization)
	check("maxMembersPerProject", r.MaxMembersPerProject)
	check("maxTasksPerProject", r.MaxTasksPerProject)
	return errors
}

func (r LimitsRequest) Limits() settings.Limits {
	return settings.Limits(r)
}
