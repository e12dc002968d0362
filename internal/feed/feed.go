package feed

import (
	"fmt"
	"time"

	"github.com/dukerupert/pawtrack/internal/model"
)

// ReadRetention is how long a read notification stays in the active view.
const ReadRetention = 7 * 24 * time.Hour

// Append returns items with n added at the end. Notifications whose id is
// already present are ignored, which makes replayed deliveries harmless.
func Append(items []model.Notification, n model.Notification) ([]model.Notification, bool) {
	if Index(items, n.ID) >= 0 {
		return items, false
	}
	out := make([]model.Notification, 0, len(items)+1)
	out = append(out, items...)
	return append(out, n), true
}

// Index returns the position of the notification with id, or -1.
func Index(items []model.Notification, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// MarkRead flips a single notification to read. Marking an already read
// notification succeeds without change.
func MarkRead(items []model.Notification, id string) ([]model.Notification, bool, error) {
	i := Index(items, id)
	if i < 0 {
		return items, false, fmt.Errorf("notification %s: %w", id, model.ErrNotFound)
	}
	if items[i].Read {
		return items, false, nil
	}
	out := append([]model.Notification(nil), items...)
	out[i].Read = true
	return out, true, nil
}

// MarkAllRead marks every notification read and returns the ids that changed.
func MarkAllRead(items []model.Notification) ([]model.Notification, []string) {
	out := append([]model.Notification(nil), items...)
	var changed []string
	for i := range out {
		if !out[i].Read {
			out[i].Read = true
			changed = append(changed, out[i].ID)
		}
	}
	return out, changed
}

func UnreadCount(items []model.Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}

// Expired reports whether a notification has dropped out of the active view.
func Expired(n model.Notification, now time.Time) bool {
	return n.Read && now.Sub(n.Time) > ReadRetention
}

// ListActive filters lazily at read time; items keep insertion order.
func ListActive(items []model.Notification, now time.Time) []model.Notification {
	out := make([]model.Notification, 0, len(items))
	for _, it := range items {
		if !Expired(it, now) {
			out = append(out, it)
		}
	}
	return out
}

// SetAccepted records the accepting member on a notification exactly once.
// The notification is also marked read.
func SetAccepted(items []model.Notification, id, by string) ([]model.Notification, error) {
	i := Index(items, id)
	if i < 0 {
		return items, fmt.Errorf("notification %s: %w", id, model.ErrNotFound)
	}
	if items[i].AcceptedBy != "" {
		return items, fmt.Errorf("notification %s accepted by %s: %w", id, items[i].AcceptedBy, model.ErrAlreadyAccepted)
	}
	out := append([]model.Notification(nil), items...)
	out[i].AcceptedBy = by
	out[i].Read = true
	return out, nil
}
