package model

import "time"

type NotificationType string

const (
	NotifSystem        NotificationType = "system"
	NotifWalkCompleted NotificationType = "walk_completed"
	NotifWalkMissed    NotificationType = "walk_missed"
	NotifCoverRequest  NotificationType = "cover_request"
	NotifSwapRequest   NotificationType = "walk_swap_request"
	NotifSwapAccepted  NotificationType = "walk_swap_accepted"
	NotifAchievement   NotificationType = "achievement"
	NotifWalkReminder  NotificationType = "walk_reminder"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifSystem, NotifWalkCompleted, NotifWalkMissed, NotifCoverRequest,
		NotifSwapRequest, NotifSwapAccepted, NotifAchievement, NotifWalkReminder:
		return true
	}
	return false
}

type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Time        time.Time        `json:"time"`
	Read        bool             `json:"read"`
	RelatedID   string           `json:"related_id,omitempty"`
	AcceptedBy  string           `json:"accepted_by,omitempty"`
	CreatedBy   string           `json:"created_by,omitempty"`
	RecipientID string           `json:"recipient_id,omitempty"`
}
