package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether the caller identified by key may make another
// request. remaining and reset feed the X-RateLimit headers.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, reset time.Time)
	Limit() int
}

// MemoryLimiter is a per-process sliding-window limiter.
type MemoryLimiter struct {
	requests int
	window   time.Duration
	clients  map[string]*clientWindow
	mu       sync.Mutex
	now      func() time.Time
}

type clientWindow struct {
	timestamps []time.Time
}

func NewMemoryLimiter(requests, windowSeconds int) *MemoryLimiter {
	requests, window := limitDefaults(requests, windowSeconds)
	return &MemoryLimiter{
		requests: requests,
		window:   window,
		clients:  make(map[string]*clientWindow),
		now:      time.Now,
	}
}

func limitDefaults(requests, windowSeconds int) (int, time.Duration) {
	if requests <= 0 {
		requests = 100
	}
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	return requests, time.Duration(windowSeconds) * time.Second
}

func (l *MemoryLimiter) Limit() int { return l.requests }

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)

	client, ok := l.clients[key]
	if !ok {
		client = &clientWindow{timestamps: make([]time.Time, 0, l.requests)}
		l.clients[key] = client
	}

	// Drop timestamps outside the window.
	keep := 0
	for keep < len(client.timestamps) && !client.timestamps[keep].After(windowStart) {
		keep++
	}
	client.timestamps = client.timestamps[keep:]

	if len(client.timestamps) >= l.requests {
		return false, 0, client.timestamps[0].Add(l.window)
	}
	client.timestamps = append(client.timestamps, now)
	return true, l.requests - len(client.timestamps), now.Add(l.window)
}

// Sweep forgets clients with no activity in the last two windows.
func (l *MemoryLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-2 * l.window)
	for key, c := range l.clients {
		if len(c.timestamps) == 0 || c.timestamps[len(c.timestamps)-1].Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// RedisLimiter is a fixed-window limiter shared by every server instance.
// When Redis is unreachable requests are let through.
type RedisLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	prefix   string
}

func NewRedisLimiter(client *redis.Client, requests, windowSeconds int) *RedisLimiter {
	requests, window := limitDefaults(requests, windowSeconds)
	return &RedisLimiter{client: client, requests: requests, window: window, prefix: "flow:ratelimit:"}
}

func (l *RedisLimiter) Limit() int { return l.requests }

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time) {
	now := time.Now()
	bucket := now.Truncate(l.window)
	reset := bucket.Add(l.window)
	redisKey := l.prefix + key + ":" + strconv.FormatInt(bucket.Unix(), 10)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireAt(ctx, redisKey, reset.Add(time.Second))
	if _, err := pipe.Exec(ctx); err != nil {
		return true, l.requests, reset
	}

	n := int(incr.Val())
	if n > l.requests {
		return false, 0, reset
	}
	return true, l.requests - n, reset
}

// RateLimit applies limiter per client IP.
func RateLimit(limiter Limiter) func(http.Handler) http.Handler {
	return rateLimit(limiter, func(r *http.Request) string { return getClientIP(r) })
}

// RateLimitByUser applies limiter per authenticated user, falling back to
// the client IP. It must run after Auth.
func RateLimitByUser(limiter Limiter) func(http.Handler) http.Handler {
	return rateLimit(limiter, func(r *http.Request) string {
		if userID := GetUserID(r.Context()); userID != 0 {
			return "user:" + strconv.FormatInt(userID, 10)
		}
		return getClientIP(r)
	})
}

func rateLimit(limiter Limiter, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, resetTime := limiter.Allow(r.Context(), keyFn(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(resetTime).Seconds())+1, 10))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
