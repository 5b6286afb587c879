package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/api/dto"
	"github.com/hugh/flow/internal/api/middleware"
	"github.com/hugh/flow/internal/dashboard"
)

type Dashboard interface {
	Stats(ctx context.Context, actor access.Actor) (dashboard.RoleStats, error)
	RecentActivity(ctx context.Context, actor access.Actor, limit int) ([]dashboard.Activity, error)
	UpcomingDeadlines(ctx context.Context, actor access.Actor, withinDays int) ([]dashboard.Deadline, error)
}

type DashboardHandler struct {
	dashboard Dashboard
	logger    *slog.Logger
}

func NewDashboardHandler(d Dashboard, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: d, logger: logger}
}

// Stats handles GET /api/v1/dashboard/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "Failed to load dashboard")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Activity handles GET /api/v1/dashboard/activity?limit=N
func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	feed, err := h.dashboard.RecentActivity(r.Context(), middleware.GetActor(r.Context()), limit)
	if err != nil {
		writeError(w, h.logger, err, "Failed to load activity")
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: feed, Total: len(feed)})
}

// Deadlines handles GET /api/v1/dashboard/deadlines?days=N
func (h *DashboardHandler) Deadlines(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", dashboard.DefaultWindowDays)
	list, err := h.dashboard.UpcomingDeadlines(r.Context(), middleware.GetActor(r.Context()), days)
	if err != nil {
		writeError(w, h.logger, err, "Failed to load deadlines")
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: list, Total: len(list)})
}
