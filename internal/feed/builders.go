package feed

import (
	"fmt"
	"time"

	"github.com/dukerupert/pawtrack/internal/model"
)

const (
	dayLayout  = "Jan 2"
	timeLayout = "3:04 PM"
)

func when(t time.Time) string {
	return fmt.Sprintf("%s at %s", t.Format(dayLayout), t.Format(timeLayout))
}

func base(id string, typ model.NotificationType, now time.Time) model.Notification {
	return model.Notification{ID: id, Type: typ, Time: now}
}

func NewWelcome(id string, now time.Time) model.Notification {
	n := base(id, model.NotifSystem, now)
	n.Title = "Welcome to the Dog Walking App!"
	n.Message = "Start by scheduling walks for your family members."
	return n
}

// NewSystem builds a free-form system notice addressed to one member.
func NewSystem(id string, now time.Time, recipient, title, message string) model.Notification {
	n := base(id, model.NotifSystem, now)
	n.Title = title
	n.Message = message
	n.RecipientID = recipient
	return n
}

func NewWalkCompleted(id string, now time.Time, w model.Walk, walker, dog string) model.Notification {
	n := base(id, model.NotifWalkCompleted, now)
	n.Title = "Walk Completed"
	d := 0
	if w.Duration != nil {
		d = *w.Duration
	}
	n.Message = fmt.Sprintf("%s completed a %d minute walk with %s", walker, d, dog)
	n.RelatedID = w.ID
	n.CreatedBy = w.AssignedTo
	return n
}

func NewCoverRequest(id string, now time.Time, w model.Walk, requester string) model.Notification {
	n := base(id, model.NotifCoverRequest, now)
	n.Title = "Walk Cover Needed"
	n.Message = fmt.Sprintf("%s needs someone to cover a walk on %s", requester, when(w.Date))
	n.RelatedID = w.ID
	n.CreatedBy = w.AssignedTo
	return n
}

func NewSwapRequest(id string, now time.Time, w model.Walk, requester string) model.Notification {
	n := base(id, model.NotifSwapRequest, now)
	n.Title = "Walk Swap Request"
	n.Message = fmt.Sprintf("%s is looking for someone to take over a walk on %s", requester, when(w.Date))
	n.RelatedID = w.ID
	n.CreatedBy = w.SwapRequestedBy
	return n
}

// NewSwapAccepted is addressed to the member who asked for the swap.
func NewSwapAccepted(id string, now time.Time, w model.Walk, acceptorID, acceptor, requesterID string) model.Notification {
	n := base(id, model.NotifSwapAccepted, now)
	n.Title = "Walk Swap Accepted"
	n.Message = fmt.Sprintf("%s has agreed to take your walk on %s", acceptor, when(w.Date))
	n.RelatedID = w.ID
	n.CreatedBy = acceptorID
	n.RecipientID = requesterID
	return n
}

func NewAchievement(id string, now time.Time, memberID, member, badge string) model.Notification {
	n := base(id, model.NotifAchievement, now)
	n.Title = "Achievement Unlocked"
	n.Message = fmt.Sprintf("%s earned the %s badge", member, badge)
	n.RecipientID = memberID
	return n
}

func NewWalkReminder(id string, now time.Time, w model.Walk, walker, dog string) model.Notification {
	n := base(id, model.NotifWalkReminder, now)
	n.Title = "Upcoming Walk"
	n.Message = fmt.Sprintf("%s, it's almost time to walk %s (%s)", walker, dog, w.Date.Format(timeLayout))
	n.RelatedID = w.ID
	n.RecipientID = w.AssignedTo
	return n
}

func NewWalkMissed(id string, now time.Time, w model.Walk, walker string) model.Notification {
	n := base(id, model.NotifWalkMissed, now)
	n.Title = "Walk Missed"
	n.Message = fmt.Sprintf("%s's walk on %s was not started", walker, when(w.Date))
	n.RelatedID = w.ID
	n.RecipientID = w.AssignedTo
	return n
}

// HasRelated reports whether a notification of type t already points at relatedID.
func HasRelated(items []model.Notification, t model.NotificationType, relatedID string) bool {
	for _, n := range items {
		if n.Type == t && n.RelatedID == relatedID {
			return true
		}
	}
	return false
}
