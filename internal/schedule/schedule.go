package schedule

import (
	"fmt"
	"time"

	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/walk"
)

const (
	SeedDays    = 14
	MorningHour = 7
	EveningHour = 17
	DefaultHour = 12
	WalksPerDay = 2
)

// Seed builds the registration schedule: a morning and an evening walk for
// each day starting at start's calendar day. Mornings rotate from member 0,
// evenings from member 1.
func Seed(members []model.Member, start time.Time, days int, newID func() string) []model.Walk {
	if len(members) == 0 || days <= 0 {
		return []model.Walk{}
	}
	n := len(members)
	walks := make([]model.Walk, 0, days*WalksPerDay)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		walks = append(walks,
			model.Walk{
				ID:         newID(),
				Date:       at(day, MorningHour),
				AssignedTo: members[i%n].ID,
				Status:     model.WalkNotStarted,
			},
			model.Walk{
				ID:         newID(),
				Date:       at(day, EveningHour),
				AssignedTo: members[(i+1)%n].ID,
				Status:     model.WalkNotStarted,
			},
		)
	}
	return walks
}

func at(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

// AtDefaultTime places a date-only value at noon.
func AtDefaultTime(day time.Time) time.Time {
	return at(day, DefaultHour)
}

func hasMember(members []model.Member, id string) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}

func index(walks []model.Walk, id string) (int, error) {
	for i := range walks {
		if walks[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("walk %s: %w", id, model.ErrNotFound)
}

// Draft is a walk to add through the schedule editor.
type Draft struct {
	Date       time.Time `json:"date"`
	AssignedTo string    `json:"assigned_to,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// Add appends a Not Started walk. An empty assignee falls back to the first
// member of the roster.
func Add(walks []model.Walk, members []model.Member, d Draft, id string) ([]model.Walk, model.Walk, error) {
	if len(members) == 0 {
		return walks, model.Walk{}, fmt.Errorf("household has no members: %w", model.ErrNotFound)
	}
	if d.AssignedTo == "" {
		d.AssignedTo = members[0].ID
	}
	if !hasMember(members, d.AssignedTo) {
		return walks, model.Walk{}, fmt.Errorf("member %s: %w", d.AssignedTo, model.ErrNotFound)
	}
	if d.Date.IsZero() {
		return walks, model.Walk{}, fmt.Errorf("%w: walk date is required", model.ErrInvalidState)
	}
	w := model.Walk{
		ID:         id,
		Date:       d.Date,
		AssignedTo: d.AssignedTo,
		Status:     model.WalkNotStarted,
		Notes:      d.Notes,
	}
	out := append(append([]model.Walk(nil), walks...), w)
	return out, w, nil
}

// Remove deletes a walk unless it is locked.
func Remove(walks []model.Walk, id string) ([]model.Walk, error) {
	i, err := index(walks, id)
	if err != nil {
		return walks, err
	}
	if err := walk.Editable(walks[i]); err != nil {
		return walks, err
	}
	out := make([]model.Walk, 0, len(walks)-1)
	out = append(out, walks[:i]...)
	return append(out, walks[i+1:]...), nil
}

// Reschedule moves a walk to a new date and time.
func Reschedule(walks []model.Walk, id string, date time.Time) ([]model.Walk, model.Walk, error) {
	i, err := index(walks, id)
	if err != nil {
		return walks, model.Walk{}, err
	}
	if err := walk.Editable(walks[i]); err != nil {
		return walks, model.Walk{}, err
	}
	if date.IsZero() {
		return walks, model.Walk{}, fmt.Errorf("%w: walk date is required", model.ErrInvalidState)
	}
	out := append([]model.Walk(nil), walks...)
	out[i].Date = date
	return out, out[i], nil
}

// Reassign changes who a walk belongs to. A pending swap offer is withdrawn
// by the reassignment. Completed walks keep their assignee so statistics
// stay attributed to whoever walked.
func Reassign(walks []model.Walk, members []model.Member, id, to string) ([]model.Walk, model.Walk, error) {
	i, err := index(walks, id)
	if err != nil {
		return walks, model.Walk{}, err
	}
	if err := walk.Editable(walks[i]); err != nil {
		return walks, model.Walk{}, err
	}
	if walks[i].Status == model.WalkCompleted {
		return walks, model.Walk{}, fmt.Errorf("%w: walk %s is completed", model.ErrInvalidState, id)
	}
	if !hasMember(members, to) {
		return walks, model.Walk{}, fmt.Errorf("member %s: %w", to, model.ErrNotFound)
	}
	out := append([]model.Walk(nil), walks...)
	out[i].AssignedTo = to
	if out[i].Status == model.WalkSwapRequested {
		out[i].Status = model.WalkNotStarted
		out[i].SwapRequestedBy = ""
	}
	return out, out[i], nil
}

// ReassignAll moves every walk owned by from to fallback and returns the
// ids that moved. Used when a member leaves the household, so locks do not
// apply: no walk may be left with a missing assignee. A walk the leaving
// member had started goes back to Not Started for the new assignee.
func ReassignAll(walks []model.Walk, from, fallback string) ([]model.Walk, []string) {
	out := append([]model.Walk(nil), walks...)
	var moved []string
	for i := range out {
		if out[i].AssignedTo != from {
			continue
		}
		out[i].AssignedTo = fallback
		switch out[i].Status {
		case model.WalkSwapRequested:
			out[i].Status = model.WalkNotStarted
			out[i].SwapRequestedBy = ""
		case model.WalkInProgress:
			out[i].Status = model.WalkNotStarted
			out[i].StartTime = nil
		}
		moved = append(moved, out[i].ID)
	}
	return out, moved
}

// TodaysWalk returns the first of memberID's walks today that is still
// actionable.
func TodaysWalk(walks []model.Walk, memberID string, now time.Time) (model.Walk, bool) {
	for _, w := range walks {
		if w.AssignedTo != memberID || !walk.IsToday(w, now) {
			continue
		}
		switch w.Status {
		case model.WalkNotStarted, model.WalkConfirmed, model.WalkInProgress:
			return w, true
		}
	}
	return model.Walk{}, false
}
