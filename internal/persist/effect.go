// Package persist carries state changes from the in-memory household state
// to the record store. Writes are queued and retried in the background and
// never block or roll back the in-memory transition that produced them.
package persist

import (
	"errors"
	"fmt"

	"github.com/dukerupert/pawtrack/internal/model"
)

type Kind string

const (
	KindCreateHousehold    Kind = "create_household"
	KindUpsertMember       Kind = "upsert_member"
	KindDeleteMember       Kind = "delete_member"
	KindSaveDog            Kind = "save_dog"
	KindUpsertWalk         Kind = "upsert_walk"
	KindDeleteWalk         Kind = "delete_walk"
	KindInsertNotification Kind = "insert_notification"
	KindMarkRead           Kind = "mark_read"
	KindAcceptSwap         Kind = "accept_swap"
	KindSaveSession        Kind = "save_session"
	KindDeleteSession      Kind = "delete_session"
)

// Effect is one outbound write. Only the fields relevant to Kind are set.
type Effect struct {
	Kind        Kind
	HouseholdID string
	// Origin is the session token that produced the effect, used to route
	// conflicts back to it.
	Origin string

	Household    *model.Household
	State        *model.HouseholdState
	Member       *model.Member
	Dog          *model.Dog
	Walk         *model.Walk
	Notification *model.Notification
	Session      *model.SessionSnapshot
	IDs          []string

	// AcceptSwap: the request being accepted and the member accepting it.
	// Walk holds the reassigned walk and Notification the acceptance notice.
	RequestID  string
	AcceptedBy string
}

// ConflictError reports that a conditional write lost to a write from
// another session. Winner and Walk describe what is stored now.
type ConflictError struct {
	RequestID string
	Winner    string
	Walk      *model.Walk
}

func (e *ConflictError) Error() string {
	if e.Winner == "" {
		return fmt.Sprintf("swap request %s: walk no longer open", e.RequestID)
	}
	return fmt.Sprintf("swap request %s: accepted by %s", e.RequestID, e.Winner)
}

func (e *ConflictError) Unwrap() error { return model.ErrAlreadyAccepted }

// AsConflict extracts a ConflictError from err.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
