package model

import "time"

// Household is the tenant record: one dog, N members, and every walk and
// notification belong to exactly one household.
type Household struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// HouseholdState is the aggregate root held in memory for one session.
type HouseholdState struct {
	IsRegistered  bool           `json:"is_registered"`
	HouseholdID   string         `json:"household_id"`
	HouseholdName string         `json:"household_name"`
	CurrentUser   string         `json:"current_user"`
	Dog           Dog            `json:"dog"`
	Members       []Member       `json:"members"`
	Walks         []Walk         `json:"walks"`
	Notifications []Notification `json:"notifications"`
	CurrentWalkID string         `json:"current_walk_id,omitempty"`
	RememberMe    bool           `json:"remember_me"`
}

// MemberIndex returns the position of the member with the given id, or -1.
func (s *HouseholdState) MemberIndex(id string) int {
	for i := range s.Members {
		if s.Members[i].ID == id {
			return i
		}
	}
	return -1
}

// WalkIndex returns the position of the walk with the given id, or -1.
func (s *HouseholdState) WalkIndex(id string) int {
	for i := range s.Walks {
		if s.Walks[i].ID == id {
			return i
		}
	}
	return -1
}

// NotificationIndex returns the position of the notification with the given id, or -1.
func (s *HouseholdState) NotificationIndex(id string) int {
	for i := range s.Notifications {
		if s.Notifications[i].ID == id {
			return i
		}
	}
	return -1
}

// MemberName returns the display name for a member id, or "Unknown".
func (s *HouseholdState) MemberName(id string) string {
	if i := s.MemberIndex(id); i >= 0 {
		return s.Members[i].Name
	}
	return "Unknown"
}

// CurrentWalk returns the walk being tracked for the current user, if any.
func (s *HouseholdState) CurrentWalk() (Walk, bool) {
	if s.CurrentWalkID == "" {
		return Walk{}, false
	}
	i := s.WalkIndex(s.CurrentWalkID)
	if i < 0 {
		return Walk{}, false
	}
	return s.Walks[i], true
}

// Clone returns a deep copy so reducers can build a new snapshot without
// aliasing slices of the previous one.
func (s HouseholdState) Clone() HouseholdState {
	out := s
	out.Members = make([]Member, len(s.Members))
	for i, m := range s.Members {
		out.Members[i] = m.clone()
	}
	out.Walks = make([]Walk, len(s.Walks))
	for i, w := range s.Walks {
		out.Walks[i] = w.clone()
	}
	out.Notifications = append([]Notification(nil), s.Notifications...)
	if out.Notifications == nil {
		out.Notifications = []Notification{}
	}
	return out
}
