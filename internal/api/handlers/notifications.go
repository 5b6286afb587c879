package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/flow/internal/api/dto"
	"github.com/hugh/flow/internal/api/middleware"
	"github.com/hugh/flow/internal/events"
)

type NotificationHandler struct {
	inbox  *events.Inbox
	logger *slog.Logger
}

func NewNotificationHandler(inbox *events.Inbox, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{inbox: inbox, logger: logger}
}

// List handles GET /api/v1/notifications. ?unread=true limits the list to
// unread notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	load := h.inbox.List
	if r.URL.Query().Get("unread") == "true" {
		load = h.inbox.Unread
	}
	list, err := load(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err, "Failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: dto.NewNotificationResponses(list), Total: len(list)})
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.inbox.UnreadCount(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "Failed to count notifications")
		return
	}
	writeJSON(w, http.StatusOK, dto.CountResponse{Count: n})
}

// MarkRead handles POST /api/v1/notifications/{notificationID}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "notificationID", "notification")
	if !ok {
		return
	}
	if err := h.inbox.MarkRead(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		writeError(w, h.logger, err, "Failed to mark notification read")
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Marked as read"})
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.inbox.MarkAllRead(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "Failed to mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, dto.CountResponse{Count: n})
}
