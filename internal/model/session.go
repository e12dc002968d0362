package model

import "time"

// SessionSnapshot is the persisted form of one session's household state,
// kept so remembered sessions survive a restart.
type SessionSnapshot struct {
	Token       string    `json:"token"`
	HouseholdID string    `json:"household_id"`
	Data        []byte    `json:"-"`
	Remember    bool      `json:"remember"`
	ExpiresAt   time.Time `json:"expires_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
