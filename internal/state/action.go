package state

import (
	"time"

	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/schedule"
	"github.com/dukerupert/pawtrack/internal/walk"
)

// Action is one request to change the household state. Name is used as
// the metric and log label.
type Action interface {
	Name() string
}

type StartWalk struct {
	WalkID string `json:"walk_id"`
}

type ConfirmWalk struct {
	WalkID string `json:"walk_id"`
}

type RequestSwap struct {
	WalkID string `json:"walk_id"`
}

type RequestCover struct {
	WalkID string `json:"walk_id"`
}

// AcceptSwap accepts the swap request carried by a notification.
type AcceptSwap struct {
	NotificationID string `json:"notification_id"`
}

// EndWalk completes the current walk.
type EndWalk struct {
	walk.Completion
}

type MarkRead struct {
	NotificationID string `json:"notification_id"`
}

type MarkAllRead struct{}

type AddMember struct {
	MemberName string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	AvatarRef  string     `json:"avatar_ref,omitempty"`
	Role       model.Role `json:"role,omitempty"`
}

type RemoveMember struct {
	MemberID string `json:"member_id"`
}

type SwitchUser struct {
	MemberID string `json:"member_id"`
}

type UpdateDog struct {
	Dog model.Dog `json:"dog"`
}

type AddWalk struct {
	schedule.Draft
}

type RemoveWalk struct {
	WalkID string `json:"walk_id"`
}

type RescheduleWalk struct {
	WalkID string    `json:"walk_id"`
	Date   time.Time `json:"date"`
}

type ReassignWalk struct {
	WalkID   string `json:"walk_id"`
	MemberID string `json:"member_id"`
}

// GrantAchievement adds a manual badge to a member.
type GrantAchievement struct {
	MemberID string `json:"member_id"`
	Label    string `json:"label"`
}

// CheckReminders emits due reminders and missed-walk notices.
type CheckReminders struct {
	Lead  time.Duration
	Grace time.Duration
}

// ReceiveNotification merges a notification persisted by another session.
type ReceiveNotification struct {
	Notification model.Notification
}

// SwapConflict reconciles a local swap acceptance that lost to another
// session. Walk is the stored walk, when known.
type SwapConflict struct {
	RequestID  string
	AcceptedID string
	Winner     string
	Walk       *model.Walk
}

func (StartWalk) Name() string           { return "start_walk" }
func (ConfirmWalk) Name() string         { return "confirm_walk" }
func (RequestSwap) Name() string         { return "request_swap" }
func (RequestCover) Name() string        { return "request_cover" }
func (AcceptSwap) Name() string          { return "accept_swap" }
func (EndWalk) Name() string             { return "end_walk" }
func (MarkRead) Name() string            { return "mark_read" }
func (MarkAllRead) Name() string         { return "mark_all_read" }
func (AddMember) Name() string           { return "add_member" }
func (RemoveMember) Name() string        { return "remove_member" }
func (SwitchUser) Name() string          { return "switch_user" }
func (UpdateDog) Name() string           { return "update_dog" }
func (AddWalk) Name() string             { return "add_walk" }
func (RemoveWalk) Name() string          { return "remove_walk" }
func (RescheduleWalk) Name() string      { return "reschedule_walk" }
func (ReassignWalk) Name() string        { return "reassign_walk" }
func (GrantAchievement) Name() string    { return "grant_achievement" }
func (CheckReminders) Name() string      { return "check_reminders" }
func (ReceiveNotification) Name() string { return "receive_notification" }
func (SwapConflict) Name() string        { return "swap_conflict" }
