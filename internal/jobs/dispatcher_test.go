package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/mail"
	"github.com/hugh/flow/pkg/queue"
	"github.com/hugh/flow/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: queue.QueueDefault, Type: task.Type()}, nil
}

func TestQueueDispatcher(t *testing.T) {
	enq := &recordingEnqueuer{}
	d := NewQueueDispatcher(enq, util.DiscardLogger(), nil)

	delivery := events.Delivery{
		Event:      events.Event{Type: models.EventTaskAssigned, Title: "Task Assigned"},
		ActorEmail: "pm@example.com",
		ActorRoles: []string{models.RoleProjectManager},
		Timestamp:  time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, d.Dispatch(context.Background(), delivery))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TypeWebhookFanout, enq.tasks[0].Type())

	var got events.Delivery
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &got))
	assert.Equal(t, delivery.Event, got.Event)
	assert.Equal(t, delivery.ActorEmail, got.ActorEmail)
	assert.True(t, delivery.Timestamp.Equal(got.Timestamp))
}

func TestQueueDispatcher_EnqueueError(t *testing.T) {
	enq := &recordingEnqueuer{err: assert.AnError}
	d := NewQueueDispatcher(enq, util.DiscardLogger(), nil)

	err := d.Dispatch(context.Background(), events.Delivery{Event: events.Event{Type: models.EventTaskComment}})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestQueueSender(t *testing.T) {
	enq := &recordingEnqueuer{}
	s := NewQueueSender(enq, util.DiscardLogger())

	assert.ErrorIs(t, s.Send(context.Background(), mail.Message{Subject: "hi"}), mail.ErrNoRecipient)

	msg := mail.Welcome("new@example.com", "Ada")
	require.NoError(t, s.Send(context.Background(), msg))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TypeEmailSend, enq.tasks[0].Type())

	var got mail.Message
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &got))
	assert.Equal(t, msg, got)
}
