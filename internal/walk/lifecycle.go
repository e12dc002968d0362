package walk

import (
	"fmt"
	"math"
	"time"

	"github.com/dukerupert/pawtrack/internal/model"
)

// Action names a lifecycle transition. They double as metric labels.
type Action string

const (
	ActionStart       Action = "start"
	ActionConfirm     Action = "confirm"
	ActionRequestSwap Action = "request_swap"
	ActionCover       Action = "request_cover"
	ActionAcceptSwap  Action = "accept_swap"
	ActionEnd         Action = "end"
)

// allowedFrom lists the statuses each action may be applied from.
var allowedFrom = map[Action][]model.WalkStatus{
	ActionStart:       {model.WalkNotStarted, model.WalkConfirmed},
	ActionConfirm:     {model.WalkNotStarted},
	ActionRequestSwap: {model.WalkNotStarted},
	ActionCover:       {model.WalkNotStarted, model.WalkConfirmed},
	ActionAcceptSwap:  {model.WalkSwapRequested},
	ActionEnd:         {model.WalkInProgress},
}

// Allowed reports whether action may be applied to a walk in status s.
func Allowed(action Action, s model.WalkStatus) bool {
	for _, from := range allowedFrom[action] {
		if from == s {
			return true
		}
	}
	return false
}

// checkOwner runs the two preconditions shared by every assignee-only
// action. Ownership is checked first so a stranger always sees NotAuthorized.
func checkOwner(w model.Walk, actor string, action Action) error {
	if w.AssignedTo != actor {
		return fmt.Errorf("%w: walk %s is assigned to someone else", model.ErrNotAuthorized, w.ID)
	}
	if !Allowed(action, w.Status) {
		return fmt.Errorf("%w: cannot %s a walk in %q status", model.ErrInvalidState, action, w.Status)
	}
	return nil
}

// Start moves a walk to In Progress and stamps its start time.
func Start(w model.Walk, actor string, now time.Time) (model.Walk, error) {
	if err := checkOwner(w, actor, ActionStart); err != nil {
		return w, err
	}
	out := w
	out.Status = model.WalkInProgress
	out.StartTime = &now
	return out, nil
}

// Confirm locks a walk in for its assignee.
func Confirm(w model.Walk, actor string) (model.Walk, error) {
	if err := checkOwner(w, actor, ActionConfirm); err != nil {
		return w, err
	}
	out := w
	out.Status = model.WalkConfirmed
	return out, nil
}

// RequestSwap turns the walk into an open offer for any other member.
func RequestSwap(w model.Walk, actor string) (model.Walk, error) {
	if err := checkOwner(w, actor, ActionRequestSwap); err != nil {
		return w, err
	}
	out := w
	out.Status = model.WalkSwapRequested
	out.SwapRequestedBy = actor
	return out, nil
}

// CheckCover validates a cover request. Cover requests never change the walk.
func CheckCover(w model.Walk, actor string) error {
	return checkOwner(w, actor, ActionCover)
}

// Reassign hands a swap-requested walk to a new assignee and reopens it.
func Reassign(w model.Walk, to string) (model.Walk, error) {
	if !Allowed(ActionAcceptSwap, w.Status) {
		return w, fmt.Errorf("%w: walk %s is no longer available for swap", model.ErrInvalidState, w.ID)
	}
	out := w
	out.AssignedTo = to
	out.Status = model.WalkNotStarted
	out.SwapRequestedBy = ""
	return out, nil
}

// Completion is the data recorded when a walk ends.
type Completion struct {
	Activity model.Activity `json:"activity"`
	DogMood  model.DogMood  `json:"dog_mood"`
}

// End completes an in-progress walk. The duration is whole minutes between
// start and now, rounded to nearest.
func End(w model.Walk, now time.Time, c Completion) (model.Walk, error) {
	if w.StartTime == nil {
		return w, fmt.Errorf("%w: walk %s", model.ErrMissingStartTime, w.ID)
	}
	if !Allowed(ActionEnd, w.Status) {
		return w, fmt.Errorf("%w: cannot end a walk in %q status", model.ErrInvalidState, w.Status)
	}
	if !c.DogMood.Valid() {
		return w, fmt.Errorf("%w: unknown dog mood %q", model.ErrInvalidState, c.DogMood)
	}
	d := Duration(*w.StartTime, now)
	activity := c.Activity
	out := w
	out.Status = model.WalkCompleted
	out.EndTime = &now
	out.Duration = &d
	out.Activity = &activity
	out.DogMood = c.DogMood
	return out, nil
}

// Duration returns end-start in minutes, rounded. Clock skew never yields a
// negative duration.
func Duration(start, end time.Time) int {
	mins := math.Round(end.Sub(start).Minutes())
	if mins < 0 {
		return 0
	}
	return int(mins)
}

// Editable reports whether the schedule editor may change or remove the walk.
// Confirmation is a hard lock; an in-progress walk is also off limits since
// it is the session's current walk.
func Editable(w model.Walk) error {
	switch w.Status {
	case model.WalkConfirmed:
		return fmt.Errorf("%w: walk %s is confirmed", model.ErrInvalidState, w.ID)
	case model.WalkInProgress:
		return fmt.Errorf("%w: walk %s is in progress", model.ErrInvalidState, w.ID)
	}
	return nil
}
