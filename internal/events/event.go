// Package events persists in-app notifications and fans the same events out
// to organization webhooks. Notifications are durable; webhook delivery is
// best effort and never affects the caller.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/hugh/flow/internal/database/models"
)

var (
	ErrQueueFull   = errors.New("webhook queue full")
	ErrPoolClosed  = errors.New("webhook pool closed")
	ErrNoRecipient = errors.New("notification recipient required")
	ErrNoEventType = errors.New("event type required")
)

// Event is what a caller emits. The recipient of the in-app notification
// is chosen by the caller, not here.
type Event struct {
	Type              string `json:"type"`
	Title             string `json:"title"`
	Message           string `json:"message"`
	RelatedEntityType string `json:"related_entity_type,omitempty"`
	RelatedEntityID   int64  `json:"related_entity_id,omitempty"`
}

// Delivery is the unit handed to a Dispatcher: the event plus the
// triggering actor's identity at emit time.
type Delivery struct {
	Event      Event     `json:"event"`
	ActorEmail string    `json:"actor_email"`
	ActorRoles []string  `json:"actor_roles"`
	Timestamp  time.Time `json:"timestamp"`
}

// Dispatcher schedules webhook fan-out for a delivery. Implementations must
// return promptly; they report hand-off failures, never delivery failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, d Delivery) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, d Delivery) error

func (f DispatcherFunc) Dispatch(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}

// KnownEventType reports whether t is one of the declared event types.
func KnownEventType(t string) bool {
	for _, known := range models.EventTypes {
		if known == t {
			return true
		}
	}
	return false
}
