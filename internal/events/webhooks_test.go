package events

import (
	"testing"

	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/store"
	"github.com/hugh/flow/internal/testutil"
	"github.com/hugh/flow/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookConfigs_SaveSealsSecret(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := store.New(db)

	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)
	w := NewWebhookConfigs(s, enc)

	sa := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	org := testutil.CreateTestOrg(t, db, "Acme", sa)

	_, err = w.Get(ctx, org.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	secret := "whsec_abcdef123456"
	view, err := w.Save(ctx, org.ID, WebhookInput{
		URL:         "https://hooks.example.com/flow",
		SecretKey:   &secret,
		IsActive:    true,
		EventTypes:  []string{models.EventTaskAssigned, models.EventTaskAssigned},
		TargetRoles: []string{models.RoleClient},
	})
	require.NoError(t, err)
	assert.Equal(t, "********3456", view.SecretKey)
	assert.Equal(t, []string{models.EventTaskAssigned}, view.EventTypes)

	stored, err := s.WebhookConfigByOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.NotEqual(t, secret, stored.SecretKey)
	opened, err := enc.Open(stored.SecretKey)
	require.NoError(t, err)
	assert.Equal(t, secret, opened)

	// A nil secret keeps the stored one; the row is updated in place.
	view, err = w.Save(ctx, org.ID, WebhookInput{URL: "https://hooks.example.com/v2", IsActive: false})
	require.NoError(t, err)
	assert.Equal(t, stored.ID, view.ID)
	assert.Equal(t, "********3456", view.SecretKey)
	assert.False(t, view.IsActive)
	assert.Empty(t, view.EventTypes)

	active, err := s.ActiveWebhookConfigs(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestWebhookConfigs_Validation(t *testing.T) {
	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)
	w := NewWebhookConfigs(nil, enc)
	ctx := testutil.TestContext(t)

	tests := []struct {
		name string
		in   WebhookInput
	}{
		{"relative url", WebhookInput{URL: "/hooks"}},
		{"unsupported scheme", WebhookInput{URL: "ftp://example.com"}},
		{"unknown event", WebhookInput{URL: "https://example.com", EventTypes: []string{"TASK_EXPLODED"}}},
		{"unknown role", WebhookInput{URL: "https://example.com", TargetRoles: []string{"JANITOR"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.Save(ctx, 1, tt.in)
			assert.ErrorIs(t, err, ErrInvalidWebhook)
		})
	}
}
