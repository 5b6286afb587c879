package queue

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/flow/pkg/config"
)

// Queue names. Webhook deliveries get their own queue so a burst of
// fan-out work cannot starve e-mail or the deadline scan.
const (
	QueueCritical = "critical"
	QueueWebhooks = "webhooks"
	QueueDefault  = "default"
	QueueLow      = "low"
)

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
	}
}

func NewClient(cfg *config.RedisConfig) *asynq.Client {
	return asynq.NewClient(redisOpt(cfg))
}

func NewServer(cfg *config.RedisConfig, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}

	return asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueWebhooks: 4,
				QueueDefault:  3,
				QueueLow:      1,
			},
			ShutdownTimeout: 10 * time.Second,
		},
	)
}

// NewScheduler returns a periodic task scheduler that evaluates cron specs
// in loc.
func NewScheduler(cfg *config.RedisConfig, loc *time.Location) *asynq.Scheduler {
	return asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{Location: loc})
}

func NewInspector(cfg *config.RedisConfig) *asynq.Inspector {
	return asynq.NewInspector(redisOpt(cfg))
}
