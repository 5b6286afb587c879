package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hugh/flow/pkg/config"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis pings Redis with exponential backoff for up to maxElapsed.
// The client is closed and an error returned if Redis never answers.
func ConnectRedis(ctx context.Context, cfg *config.RedisConfig, maxElapsed time.Duration, log *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
	})

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis not ready", "attempt", attempt, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxElapsed),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr(), err)
	}
	log.Info("connected to redis", "addr", cfg.Addr(), "attempts", attempt)
	return client, nil
}
