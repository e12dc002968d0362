package walk

import (
	"time"

	"github.com/dukerupert/pawtrack/internal/model"
)

func pending(w model.Walk) bool {
	return w.Status == model.WalkNotStarted || w.Status == model.WalkConfirmed
}

// DueForReminder reports whether now falls inside the lead window before a
// pending walk.
func DueForReminder(w model.Walk, now time.Time, lead time.Duration) bool {
	if !pending(w) || lead <= 0 {
		return false
	}
	return !now.Before(w.Date.Add(-lead)) && now.Before(w.Date)
}

// Missed reports whether a pending walk is more than grace past its slot
// but no more than window past that deadline. Older walks are not reported
// again once their notice has been cleaned up.
func Missed(w model.Walk, now time.Time, grace, window time.Duration) bool {
	if !pending(w) {
		return false
	}
	deadline := w.Date.Add(grace)
	return now.After(deadline) && now.Sub(deadline) <= window
}

// IsToday reports whether the walk is scheduled on the same calendar day as now,
// in now's location.
func IsToday(w model.Walk, now time.Time) bool {
	day := startOfDay(now)
	d := w.Date.In(now.Location())
	return !d.Before(day) && d.Before(day.AddDate(0, 0, 1))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
