package events

import "github.com/hugh/flow/internal/database/models"

// Matches applies a webhook config's two filters. An empty event-type set
// accepts every type and an empty target-role set accepts every actor.
func Matches(cfg *models.WebhookConfig, eventType string, actorRoles []string) bool {
	if !cfg.IsActive {
		return false
	}
	if len(cfg.EventTypes) > 0 && !cfg.EventTypes.Contains(eventType) {
		return false
	}
	if len(cfg.TargetRoles) == 0 {
		return true
	}
	for _, role := range actorRoles {
		if cfg.TargetRoles.Contains(role) {
			return true
		}
	}
	return false
}
