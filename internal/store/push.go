package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/pawtrack/internal/model"
)

type PushStore struct {
	db dbtx
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const pushCols = `id, member_id, household_id, endpoint, p256dh_key, auth_key, device_name, created_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	var created string
	err := scanner.Scan(&sub.ID, &sub.MemberID, &sub.HouseholdID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &created)
	if err != nil {
		return nil, err
	}
	if sub.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription registers a device. Re-subscribing an endpoint moves it
// to the new member and refreshes its keys.
func (s *PushStore) CreateSubscription(householdID, memberID, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (`+pushCols+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET
		   member_id = excluded.member_id, household_id = excluded.household_id,
		   p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, device_name = excluded.device_name`,
		uuid.NewString(), memberID, householdID, endpoint, p256dh, auth, deviceName, formatTime(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}
	return s.getByEndpoint(endpoint)
}

func (s *PushStore) getByEndpoint(endpoint string) (*model.PushSubscription, error) {
	row := s.db.QueryRow(`SELECT `+pushCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription by endpoint: %w", err)
	}
	return sub, nil
}

func (s *PushStore) ListByHousehold(householdID string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+pushCols+` FROM push_subscriptions WHERE household_id = ? ORDER BY created_at DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions by household: %w", err)
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (s *PushStore) ListByMember(householdID, memberID string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+pushCols+` FROM push_subscriptions WHERE household_id = ? AND member_id = ? ORDER BY created_at DESC`,
		householdID, memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions by member: %w", err)
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (s *PushStore) DeleteSubscription(id, householdID string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

func scanSubscriptions(rows *sql.Rows) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}
