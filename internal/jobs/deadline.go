package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/status"
	"github.com/hugh/flow/pkg/util"
)

type DeadlineStore interface {
	TasksDueBetween(ctx context.Context, from, to time.Time) ([]models.Task, error)
	HasNotification(ctx context.Context, userID int64, eventType, entityType string, entityID int64, since time.Time) (bool, error)
}

type Notifier interface {
	Emit(ctx context.Context, actor access.Actor, recipientID int64, ev events.Event) (*models.NotificationEvent, error)
}

// DeadlineScanner warns assignees about unfinished tasks due today or
// tomorrow. Each task produces at most one warning per day.
type DeadlineScanner struct {
	store    DeadlineStore
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

func NewDeadlineScanner(store DeadlineStore, notifier Notifier, loc *time.Location, logger *slog.Logger) *DeadlineScanner {
	if loc == nil {
		loc = time.UTC
	}
	return &DeadlineScanner{store: store, notifier: notifier, loc: loc, now: time.Now, logger: logger}
}

// WithClock replaces the time source.
func (d *DeadlineScanner) WithClock(now func() time.Time) *DeadlineScanner {
	d.now = now
	return d
}

// Scan returns the number of warnings sent.
func (d *DeadlineScanner) Scan(ctx context.Context) (int, error) {
	today := util.StartOfDay(d.now(), d.loc)
	tomorrow := today.AddDate(0, 0, 1)

	due, err := d.store.TasksDueBetween(ctx, today, today.AddDate(0, 0, 2))
	if err != nil {
		return 0, fmt.Errorf("tasks due: %w", err)
	}

	sent := 0
	for _, t := range due {
		if t.AssignedToID == nil || status.IsCompleted(t.Status) {
			continue
		}
		assignee := *t.AssignedToID

		seen, err := d.store.HasNotification(ctx, assignee, models.EventDeadlineApproaching, models.EntityTask, t.ID, today)
		if err != nil {
			return sent, fmt.Errorf("check previous warning: %w", err)
		}
		if seen {
			continue
		}

		when := "today"
		if !util.StartOfDay(*t.DueDate, d.loc).Before(tomorrow) {
			when = "tomorrow"
		}
		_, err = d.notifier.Emit(ctx, access.Actor{}, assignee, events.Event{
			Type:              models.EventDeadlineApproaching,
			Title:             "Deadline Approaching",
			Message:           fmt.Sprintf("Task '%s' is due %s", t.Title, when),
			RelatedEntityType: models.EntityTask,
			RelatedEntityID:   t.ID,
		})
		if err != nil {
			d.logger.Warn("deadline warning failed", "task_id", t.ID, "user_id", assignee, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
