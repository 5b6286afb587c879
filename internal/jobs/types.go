// Package jobs holds the background work run by the worker: webhook
// fan-out, outbound mail and the daily deadline scan.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/mail"
	"github.com/hugh/flow/pkg/queue"
)

// Task type names
const (
	TypeWebhookFanout = "webhook:fanout"
	TypeEmailSend     = "email:send"
	TypeDeadlineScan  = "deadline:scan"
)

const (
	emailMaxRetry   = 5
	fanoutTimeout   = 2 * time.Minute
	deadlineTimeout = 10 * time.Minute
)

// NewWebhookFanoutTask wraps a delivery. Fan-out is attempted once; a
// failed webhook is never retried.
func NewWebhookFanoutTask(d events.Delivery) (*asynq.Task, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWebhookFanout, data,
		asynq.Queue(queue.QueueWebhooks),
		asynq.MaxRetry(0),
		asynq.Timeout(fanoutTimeout),
	), nil
}

func NewEmailTask(msg mail.Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEmailSend, data,
		asynq.Queue(queue.QueueDefault),
		asynq.MaxRetry(emailMaxRetry),
	), nil
}

func NewDeadlineScanTask() *asynq.Task {
	return asynq.NewTask(TypeDeadlineScan, nil,
		asynq.Queue(queue.QueueLow),
		asynq.MaxRetry(1),
		asynq.Timeout(deadlineTimeout),
	)
}
