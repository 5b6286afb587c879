package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/mail"
	"github.com/hugh/flow/internal/metrics"
)

// Enqueuer is the part of asynq.Client the producers need.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueDispatcher hands webhook fan-out to the worker through Redis.
type QueueDispatcher struct {
	client  Enqueuer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewQueueDispatcher(client Enqueuer, logger *slog.Logger, m *metrics.Metrics) *QueueDispatcher {
	return &QueueDispatcher{client: client, logger: logger, metrics: m}
}

func (q *QueueDispatcher) Dispatch(ctx context.Context, d events.Delivery) error {
	task, err := NewWebhookFanoutTask(d)
	if err != nil {
		q.metrics.WebhookDispatched("queue", metrics.ResultFailed)
		return fmt.Errorf("encode fan-out task: %w", err)
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		q.metrics.WebhookDispatched("queue", metrics.ResultFailed)
		return fmt.Errorf("enqueue fan-out: %w", err)
	}
	q.metrics.WebhookDispatched("queue", metrics.ResultQueued)
	q.logger.Debug("webhook fan-out queued", "task_id", info.ID, "event_type", d.Event.Type)
	return nil
}

// QueueSender is a mail.Sender that defers delivery to the worker, which
// retries transient SMTP failures.
type QueueSender struct {
	client Enqueuer
	logger *slog.Logger
}

func NewQueueSender(client Enqueuer, logger *slog.Logger) *QueueSender {
	return &QueueSender{client: client, logger: logger}
}

func (q *QueueSender) Send(ctx context.Context, msg mail.Message) error {
	if len(msg.To) == 0 {
		return mail.ErrNoRecipient
	}
	task, err := NewEmailTask(msg)
	if err != nil {
		return fmt.Errorf("encode email task: %w", err)
	}
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}
