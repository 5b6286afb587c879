package store

import (
	"context"
	"time"

	"github.com/hugh/flow/internal/database/models"
)

func (s *Store) CreateNotification(ctx context.Context, n *models.NotificationEvent) error {
	return wrap(s.db.WithContext(ctx).Create(n).Error, "create notification")
}

// NotificationsByUser returns the user's notifications newest first.
func (s *Store) NotificationsByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]models.NotificationEvent, error) {
	var out []models.NotificationEvent
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, wrap(err, "notifications by user")
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID int64) (int64, error) {
	return count(ctx, s.db, &models.NotificationEvent{}, "count unread notifications", "user_id = ? AND is_read = ?", userID, false)
}

// MarkNotificationRead flips the read flag. Marking an already-read row is
// a no-op; a row that does not belong to userID is ErrNotFound.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	if _, err := first[models.NotificationEvent](ctx, s.db, "get notification", "id = ? AND user_id = ?", id, userID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Model(&models.NotificationEvent{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true).Error
	return wrap(err, "mark notification read")
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.NotificationEvent{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, wrap(res.Error, "mark all notifications read")
}

// HasNotification reports whether userID already received eventType about
// the entity since the given time.
func (s *Store) HasNotification(ctx context.Context, userID int64, eventType, entityType string, entityID int64, since time.Time) (bool, error) {
	n, err := count(ctx, s.db, &models.NotificationEvent{}, "has notification",
		"user_id = ? AND type = ? AND related_entity_type = ? AND related_entity_id = ? AND created_at >= ?",
		userID, eventType, entityType, entityID, since)
	return n > 0, err
}

// Webhook configs.

func (s *Store) ActiveWebhookConfigs(ctx context.Context) ([]models.WebhookConfig, error) {
	return find[models.WebhookConfig](ctx, s.db, "active webhook configs", "is_active = ?", true)
}

func (s *Store) WebhookConfigByOrganization(ctx context.Context, orgID int64) (*models.WebhookConfig, error) {
	return first[models.WebhookConfig](ctx, s.db, "webhook config by organization", "organization_id = ?", orgID)
}

func (s *Store) SaveWebhookConfig(ctx context.Context, c *models.WebhookConfig) error {
	return wrap(s.db.WithContext(ctx).Save(c).Error, "save webhook config")
}
