package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/persist"
)

// Repository composes the record stores. It hydrates sessions at login and
// is the writer behind the persistence queue.
type Repository struct {
	db            *sql.DB
	Households    *HouseholdStore
	Members       *MemberStore
	Dogs          *DogStore
	Walks         *WalkStore
	Notifications *NotificationStore
	Sessions      *SessionStore
	Push          *PushStore
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:            db,
		Households:    NewHouseholdStore(db),
		Members:       NewMemberStore(db),
		Dogs:          NewDogStore(db),
		Walks:         NewWalkStore(db),
		Notifications: NewNotificationStore(db),
		Sessions:      NewSessionStore(db),
		Push:          NewPushStore(db),
	}
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) HouseholdsByName(_ context.Context, name string) ([]model.Household, error) {
	return r.Households.ListByName(name)
}

func (r *Repository) HouseholdIDs(_ context.Context) ([]string, error) {
	return r.Households.ListIDs()
}

// LoadHousehold reads every record of a household. The session fields
// (current user, registration flag) are left for the caller.
func (r *Repository) LoadHousehold(_ context.Context, householdID string) (model.HouseholdState, error) {
	h, err := r.Households.GetByID(householdID)
	if err != nil {
		return model.HouseholdState{}, err
	}
	if h == nil {
		return model.HouseholdState{}, fmt.Errorf("household %s: %w", householdID, model.ErrNotFound)
	}
	s := model.HouseholdState{HouseholdID: h.ID, HouseholdName: h.Name}

	if s.Members, err = r.Members.ListByHousehold(householdID); err != nil {
		return model.HouseholdState{}, err
	}
	dog, err := r.Dogs.Get(householdID)
	if err != nil {
		return model.HouseholdState{}, err
	}
	if dog != nil {
		s.Dog = *dog
	}
	if s.Walks, err = r.Walks.ListByHousehold(householdID); err != nil {
		return model.HouseholdState{}, err
	}
	if s.Notifications, err = r.Notifications.ListByHousehold(householdID); err != nil {
		return model.HouseholdState{}, err
	}
	return s, nil
}

// Write applies one persistence effect.
func (r *Repository) Write(ctx context.Context, e persist.Effect) error {
	switch e.Kind {
	case persist.KindCreateHousehold:
		if e.Household == nil || e.State == nil {
			return fmt.Errorf("create household: missing payload")
		}
		return r.CreateHousehold(ctx, *e.Household, *e.State)
	case persist.KindUpsertMember:
		return r.Members.Upsert(e.HouseholdID, *e.Member)
	case persist.KindDeleteMember:
		return r.Members.Delete(e.HouseholdID, e.IDs...)
	case persist.KindSaveDog:
		return r.Dogs.Save(e.HouseholdID, *e.Dog)
	case persist.KindUpsertWalk:
		return r.Walks.Upsert(e.HouseholdID, *e.Walk)
	case persist.KindDeleteWalk:
		return r.Walks.Delete(e.HouseholdID, e.IDs...)
	case persist.KindInsertNotification:
		return r.Notifications.Insert(e.HouseholdID, *e.Notification)
	case persist.KindMarkRead:
		return r.Notifications.MarkRead(e.HouseholdID, e.IDs...)
	case persist.KindAcceptSwap:
		return r.AcceptSwap(ctx, e.HouseholdID, e.RequestID, e.AcceptedBy, *e.Walk, *e.Notification)
	case persist.KindSaveSession:
		return r.Sessions.Save(*e.Session)
	case persist.KindDeleteSession:
		for _, token := range e.IDs {
			if err := r.Sessions.Delete(token); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown effect kind %q", e.Kind)
}

// CreateHousehold writes a newly registered household in one transaction.
func (r *Repository) CreateHousehold(ctx context.Context, h model.Household, s model.HouseholdState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := r.Households.withTx(tx).Create(h); err != nil {
		return err
	}
	members := r.Members.withTx(tx)
	for _, m := range s.Members {
		if err := members.Upsert(h.ID, m); err != nil {
			return err
		}
	}
	if err := r.Dogs.withTx(tx).Save(h.ID, s.Dog); err != nil {
		return err
	}
	walks := r.Walks.withTx(tx)
	for _, w := range s.Walks {
		if err := walks.Upsert(h.ID, w); err != nil {
			return err
		}
	}
	notifications := r.Notifications.withTx(tx)
	for _, n := range s.Notifications {
		if err := notifications.Insert(h.ID, n); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit household: %w", err)
	}
	return nil
}

// AcceptSwap is the cross-session guard for swap acceptance. The walk must
// still be Swap Requested and the request must still be unaccepted; both
// are checked and updated in one transaction. Losing returns a
// *persist.ConflictError describing the stored winner.
func (r *Repository) AcceptSwap(ctx context.Context, householdID, requestID, acceptedBy string, w model.Walk, accepted model.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	walks := r.Walks.withTx(tx)
	notifications := r.Notifications.withTx(tx)

	stored, err := walks.GetByID(householdID, w.ID)
	if err != nil {
		return err
	}
	if stored == nil || stored.Status != model.WalkSwapRequested {
		return conflict(notifications, householdID, requestID, stored)
	}

	won, err := notifications.SetAcceptedIfOpen(householdID, requestID, acceptedBy)
	if err != nil {
		return err
	}
	if !won {
		return conflict(notifications, householdID, requestID, stored)
	}

	if err := walks.Upsert(householdID, w); err != nil {
		return err
	}
	if err := notifications.Insert(householdID, accepted); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit swap accept: %w", err)
	}
	return nil
}

func conflict(notifications *NotificationStore, householdID, requestID string, stored *model.Walk) error {
	req, err := notifications.GetByID(householdID, requestID)
	if err != nil {
		return err
	}
	c := &persist.ConflictError{RequestID: requestID, Walk: stored}
	if req != nil {
		c.Winner = req.AcceptedBy
	}
	return c
}
