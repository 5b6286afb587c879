package events

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/store"
	"github.com/hugh/flow/pkg/crypto"
)

var ErrInvalidWebhook = errors.New("invalid webhook config")

type WebhookConfigStore interface {
	WebhookConfigByOrganization(ctx context.Context, orgID int64) (*models.WebhookConfig, error)
	SaveWebhookConfig(ctx context.Context, c *models.WebhookConfig) error
}

// WebhookInput is an update to an organization's webhook. A nil SecretKey
// keeps the stored secret; an empty one clears it.
type WebhookInput struct {
	URL         string
	SecretKey   *string
	IsActive    bool
	EventTypes  []string
	TargetRoles []string
}

// WebhookView is what callers see: the secret only ever appears masked.
type WebhookView struct {
	ID             int64    `json:"id,string"`
	OrganizationID int64    `json:"organization_id,string"`
	URL            string   `json:"url"`
	SecretKey      string   `json:"secret_key,omitempty"`
	IsActive       bool     `json:"is_active"`
	EventTypes     []string `json:"event_types"`
	TargetRoles    []string `json:"target_roles"`
}

type WebhookConfigs struct {
	store     WebhookConfigStore
	encryptor *crypto.Encryptor
}

func NewWebhookConfigs(store WebhookConfigStore, encryptor *crypto.Encryptor) *WebhookConfigs {
	return &WebhookConfigs{store: store, encryptor: encryptor}
}

func (w *WebhookConfigs) Get(ctx context.Context, orgID int64) (*WebhookView, error) {
	cfg, err := w.store.WebhookConfigByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return w.view(cfg), nil
}

// Save creates or replaces the organization's webhook.
func (w *WebhookConfigs) Save(ctx context.Context, orgID int64, in WebhookInput) (*WebhookView, error) {
	if err := validateWebhook(in); err != nil {
		return nil, err
	}

	cfg, err := w.store.WebhookConfigByOrganization(ctx, orgID)
	if errors.Is(err, store.ErrNotFound) {
		cfg = &models.WebhookConfig{OrganizationID: orgID}
	} else if err != nil {
		return nil, err
	}

	cfg.URL = strings.TrimSpace(in.URL)
	cfg.IsActive = in.IsActive
	cfg.EventTypes = dedupe(in.EventTypes)
	cfg.TargetRoles = dedupe(in.TargetRoles)

	if in.SecretKey != nil {
		sealed, err := w.encryptor.Seal(*in.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("seal webhook secret: %w", err)
		}
		cfg.SecretKey = sealed
	}

	if err := w.store.SaveWebhookConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return w.view(cfg), nil
}

func (w *WebhookConfigs) view(cfg *models.WebhookConfig) *WebhookView {
	v := &WebhookView{
		ID:             cfg.ID,
		OrganizationID: cfg.OrganizationID,
		URL:            cfg.URL,
		IsActive:       cfg.IsActive,
		EventTypes:     append([]string{}, cfg.EventTypes...),
		TargetRoles:    append([]string{}, cfg.TargetRoles...),
	}
	if secret, err := w.encryptor.Open(cfg.SecretKey); err == nil {
		v.SecretKey = crypto.Mask(secret)
	}
	return v
}

func validateWebhook(in WebhookInput) error {
	u, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) URL", ErrInvalidWebhook)
	}
	for _, t := range in.EventTypes {
		if !KnownEventType(t) {
			return fmt.Errorf("%w: unknown event type %q", ErrInvalidWebhook, t)
		}
	}
	for _, r := range in.TargetRoles {
		if !access.IsKnownRole(r) {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidWebhook, r)
		}
	}
	return nil
}

func dedupe(in []string) models.StringList {
	out := models.StringList{}
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
