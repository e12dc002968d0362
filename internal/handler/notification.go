package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/pawtrack/internal/feed"
	"github.com/dukerupert/pawtrack/internal/state"
)

type NotificationHandler struct {
	logger *slog.Logger
	clock  func() time.Time
}

func NewNotificationHandler(logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{logger: logger, clock: func() time.Time { return time.Now().UTC() }}
}

// List handles GET /api/notifications. Read notices past retention are
// left out.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := storeOf(r).Snapshot()
	writeJSON(w, http.StatusOK, feed.Views(feed.ListActive(snap.Notifications, h.clock())))
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	snap := storeOf(r).Snapshot()
	writeJSON(w, http.StatusOK, map[string]int{"count": feed.UnreadCount(snap.Notifications)})
}

// Read handles POST /api/notifications/{id}/read
func (h *NotificationHandler) Read(w http.ResponseWriter, r *http.Request) {
	if _, ok := apply(w, r, h.logger, state.MarkRead{NotificationID: r.PathValue("id")}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReadAll handles POST /api/notifications/read-all
func (h *NotificationHandler) ReadAll(w http.ResponseWriter, r *http.Request) {
	if _, ok := apply(w, r, h.logger, state.MarkAllRead{}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Accept handles POST /api/notifications/{id}/accept
func (h *NotificationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	res, ok := apply(w, r, h.logger, state.AcceptSwap{NotificationID: r.PathValue("id")})
	if !ok {
		return
	}
	wk, _ := walkByID(res.State, res.Subject)
	writeJSON(w, http.StatusOK, wk)
}
