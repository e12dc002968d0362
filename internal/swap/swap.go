// Package swap coordinates handing a walk to another household member.
// A swap request is a broadcast offer that resolves on the first acceptance;
// a cover request is informational only and never resolves here.
package swap

import (
	"fmt"
	"time"

	"github.com/dukerupert/pawtrack/internal/feed"
	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/walk"
)

// Request marks the walk as up for swap and builds the broadcast notification.
func Request(w model.Walk, actor, requesterName string, now time.Time, id string) (model.Walk, model.Notification, error) {
	out, err := walk.RequestSwap(w, actor)
	if err != nil {
		return w, model.Notification{}, err
	}
	return out, feed.NewSwapRequest(id, now, out, requesterName), nil
}

// Cover validates a cover request and builds its notification. The walk is
// left untouched.
func Cover(w model.Walk, actor, requesterName string, now time.Time, id string) (model.Notification, error) {
	if err := walk.CheckCover(w, actor); err != nil {
		return model.Notification{}, err
	}
	return feed.NewCoverRequest(id, now, w, requesterName), nil
}

// Acceptance is the outcome of a successful accept.
type Acceptance struct {
	Walk             model.Walk         `json:"walk"`
	Original         model.Notification `json:"original"`
	Accepted         model.Notification `json:"accepted"`
	PreviousAssignee string             `json:"previous_assignee"`
}

// Requester returns who asked for the swap. The notification's creator is
// preferred because the walk forgets its requester once reassigned.
func Requester(w model.Walk, n model.Notification) string {
	if n.CreatedBy != "" {
		return n.CreatedBy
	}
	return w.SwapRequestedBy
}

// Accept resolves a swap request for actor. The notification's acceptedBy
// and the walk's status are checked together; once acceptedBy is set every
// later attempt fails with ErrAlreadyAccepted.
func Accept(w model.Walk, n model.Notification, actor, acceptorName string, now time.Time, id string) (Acceptance, error) {
	if n.Type != model.NotifSwapRequest || n.RelatedID != w.ID {
		return Acceptance{}, fmt.Errorf("swap request %s for walk %s: %w", n.ID, w.ID, model.ErrNotFound)
	}
	requester := Requester(w, n)
	if actor == requester {
		return Acceptance{}, fmt.Errorf("walk %s: %w", w.ID, model.ErrSelfAcceptNotAllowed)
	}
	if n.AcceptedBy != "" {
		return Acceptance{}, fmt.Errorf("swap request %s taken by %s: %w", n.ID, n.AcceptedBy, model.ErrAlreadyAccepted)
	}
	reassigned, err := walk.Reassign(w, actor)
	if err != nil {
		return Acceptance{}, err
	}

	original := n
	original.AcceptedBy = actor
	original.Read = true

	return Acceptance{
		Walk:             reassigned,
		Original:         original,
		Accepted:         feed.NewSwapAccepted(id, now, w, actor, acceptorName, requester),
		PreviousAssignee: w.AssignedTo,
	}, nil
}

// Open returns the unaccepted swap request notification pointing at walkID.
func Open(items []model.Notification, walkID string) (model.Notification, bool) {
	for i := len(items) - 1; i >= 0; i-- {
		n := items[i]
		if n.Type == model.NotifSwapRequest && n.RelatedID == walkID && n.AcceptedBy == "" {
			return n, true
		}
	}
	return model.Notification{}, false
}
