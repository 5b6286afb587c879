package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	healthy   = "healthy"
	unhealthy = "unhealthy"
	degraded  = "degraded"

	pingTimeout = 2 * time.Second
)

// HealthHandler reports on the database and, when the server runs with one,
// Redis. Redis going away only degrades the service: webhook fan-out and
// rate limiting fall back to in-process work.
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
	start time.Time
}

func NewHealthHandler(db *gorm.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, start: time.Now()}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
	Uptime   string            `json:"uptime"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:   healthy,
		Services: map[string]string{"database": healthy},
		Uptime:   time.Since(h.start).Truncate(time.Second).String(),
	}

	if err := h.pingDB(ctx); err != nil {
		resp.Services["database"] = unhealthy
		resp.Status = unhealthy
	}

	if h.redis != nil {
		resp.Services["redis"] = healthy
		if err := h.redis.Ping(ctx).Err(); err != nil {
			resp.Services["redis"] = unhealthy
			if resp.Status == healthy {
				resp.Status = degraded
			}
		}
	}

	code := http.StatusOK
	if resp.Status == unhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// Ready is a liveness check; it never touches dependencies.
func (h *HealthHandler) Ready(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
