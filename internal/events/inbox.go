package events

import (
	"context"

	"github.com/hugh/flow/internal/database/models"
)

// DefaultInboxLimit caps a single inbox page.
const DefaultInboxLimit = 100

type InboxStore interface {
	NotificationsByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]models.NotificationEvent, error)
	CountUnreadNotifications(ctx context.Context, userID int64) (int64, error)
	MarkNotificationRead(ctx context.Context, userID, id int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)
}

// Inbox is a user's view of their own notifications.
type Inbox struct {
	store InboxStore
}

func NewInbox(store InboxStore) *Inbox {
	return &Inbox{store: store}
}

func (i *Inbox) List(ctx context.Context, userID int64) ([]models.NotificationEvent, error) {
	return i.store.NotificationsByUser(ctx, userID, false, DefaultInboxLimit)
}

func (i *Inbox) Unread(ctx context.Context, userID int64) ([]models.NotificationEvent, error) {
	return i.store.NotificationsByUser(ctx, userID, true, DefaultInboxLimit)
}

func (i *Inbox) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return i.store.CountUnreadNotifications(ctx, userID)
}

// MarkRead is idempotent. A notification owned by someone else is
// reported as not found.
func (i *Inbox) MarkRead(ctx context.Context, userID, id int64) error {
	return i.store.MarkNotificationRead(ctx, userID, id)
}

func (i *Inbox) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return i.store.MarkAllNotificationsRead(ctx, userID)
}
