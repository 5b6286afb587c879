package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/metrics"
)

// dispatchTimeout bounds the hand-off to the dispatcher. It is detached from
// the request context so a client disconnect does not cancel fan-out.
const dispatchTimeout = 2 * time.Second

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.NotificationEvent) error
}

type Router struct {
	store      NotificationStore
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewRouter builds a router. A nil dispatcher disables webhook fan-out.
func NewRouter(store NotificationStore, dispatcher Dispatcher, logger *slog.Logger, m *metrics.Metrics) *Router {
	return &Router{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

func (r *Router) WithClock(now func() time.Time) *Router {
	r.now = now
	return r
}

// Emit records ev as an unread notification for recipientID, then hands a
// Delivery to the dispatcher. Only the notification write can fail the
// call; fan-out problems are logged. Types outside models.EventTypes are
// still recorded and fanned out; only webhooks with no type filter see them.
func (r *Router) Emit(ctx context.Context, actor access.Actor, recipientID int64, ev Event) (*models.NotificationEvent, error) {
	if strings.TrimSpace(ev.Type) == "" {
		return nil, ErrNoEventType
	}
	if !KnownEventType(ev.Type) {
		r.logger.Debug("emitting unlisted event type", "type", ev.Type)
	}
	if recipientID == 0 {
		return nil, ErrNoRecipient
	}

	n := &models.NotificationEvent{
		UserID:            recipientID,
		Type:              ev.Type,
		Title:             ev.Title,
		Message:           ev.Message,
		RelatedEntityType: ev.RelatedEntityType,
		RelatedEntityID:   ev.RelatedEntityID,
	}
	if err := r.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	r.metrics.NotificationCreated(ev.Type)

	r.dispatch(ctx, Delivery{
		Event:      ev,
		ActorEmail: actor.Email,
		ActorRoles: append([]string(nil), actor.Roles...),
		Timestamp:  r.now(),
	})
	return n, nil
}

func (r *Router) dispatch(ctx context.Context, d Delivery) {
	if r.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()

	if err := r.dispatcher.Dispatch(ctx, d); err != nil {
		r.logger.Warn("webhook dispatch failed",
			"event_type", d.Event.Type,
			"related_entity_type", d.Event.RelatedEntityType,
			"related_entity_id", d.Event.RelatedEntityID,
			"error", err,
		)
	}
}
