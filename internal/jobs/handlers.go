package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/mail"
	"github.com/hugh/flow/internal/metrics"
)

type Handler struct {
	deliverer events.Deliverer
	mailer    mail.Sender
	scanner   *DeadlineScanner
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewHandler(deliverer events.Deliverer, mailer mail.Sender, scanner *DeadlineScanner, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		deliverer: deliverer,
		mailer:    mailer,
		scanner:   scanner,
		logger:    logger,
		metrics:   m,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeWebhookFanout, h.HandleWebhookFanout)
	mux.HandleFunc(TypeEmailSend, h.HandleEmailSend)
	mux.HandleFunc(TypeDeadlineScan, h.HandleDeadlineScan)
}

// RegisterSchedule adds the periodic jobs to the scheduler.
func RegisterSchedule(scheduler *asynq.Scheduler, deadlineCron string) error {
	if _, err := scheduler.Register(deadlineCron, NewDeadlineScanTask()); err != nil {
		return fmt.Errorf("register deadline scan: %w", err)
	}
	return nil
}

func (h *Handler) HandleWebhookFanout(ctx context.Context, t *asynq.Task) error {
	var d events.Delivery
	if err := json.Unmarshal(t.Payload(), &d); err != nil {
		h.metrics.JobRun(TypeWebhookFanout, err)
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	results, err := h.deliverer.Deliver(ctx, d)
	h.metrics.JobRun(TypeWebhookFanout, err)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	h.logger.Info("webhook fan-out finished",
		"event_type", d.Event.Type,
		"targets", len(results),
		"failed", failed,
	)
	return nil
}

func (h *Handler) HandleEmailSend(ctx context.Context, t *asynq.Task) error {
	var msg mail.Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		h.metrics.JobRun(TypeEmailSend, err)
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	err := h.mailer.Send(ctx, msg)
	h.metrics.JobRun(TypeEmailSend, err)
	if err != nil {
		h.logger.Warn("email send failed", "to", msg.To, "subject", msg.Subject, "error", err)
		return err
	}
	return nil
}

func (h *Handler) HandleDeadlineScan(ctx context.Context, _ *asynq.Task) error {
	h.logger.Info("starting deadline scan")

	sent, err := h.scanner.Scan(ctx)
	h.metrics.JobRun(TypeDeadlineScan, err)
	if err != nil {
		h.logger.Error("deadline scan failed", "sent", sent, "error", err)
		return err
	}

	h.logger.Info("completed deadline scan", "sent", sent)
	return nil
}
