package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/pawtrack/internal/model"
)

type NotificationStore struct {
	db dbtx
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) withTx(tx *sql.Tx) *NotificationStore {
	return &NotificationStore{db: tx}
}

const notificationCols = `id, type, title, message, time, read, related_id, accepted_by, created_by, recipient_id`

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var at string
	err := scanner.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &at, &n.Read, &n.RelatedID, &n.AcceptedBy, &n.CreatedBy, &n.RecipientID)
	if err != nil {
		return nil, err
	}
	if n.Time, err = parseTime(at); err != nil {
		return nil, err
	}
	return &n, nil
}

// Insert stores a notification. Re-inserting the same id is a no-op so
// replayed effects stay harmless.
func (s *NotificationStore) Insert(householdID string, n model.Notification) error {
	_, err := s.db.Exec(
		`INSERT INTO notifications (household_id, `+notificationCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		householdID, n.ID, n.Type, n.Title, n.Message, formatTime(n.Time), n.Read,
		n.RelatedID, n.AcceptedBy, n.CreatedBy, n.RecipientID,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) GetByID(householdID, id string) (*model.Notification, error) {
	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE household_id = ? AND id = ?`, householdID, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// ListByHousehold returns the feed in insertion order.
func (s *NotificationStore) ListByHousehold(householdID string) ([]model.Notification, error) {
	rows, err := s.db.Query(`SELECT `+notificationCols+` FROM notifications WHERE household_id = ? ORDER BY rowid ASC`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, *n)
	}
	return items, rows.Err()
}

func (s *NotificationStore) MarkRead(householdID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{householdID}, stringArgs(ids)...)
	_, err := s.db.Exec(`UPDATE notifications SET read = 1 WHERE household_id = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

// SetAcceptedIfOpen records acceptedBy on a notification only when nobody
// has accepted it yet. It reports whether this call won.
func (s *NotificationStore) SetAcceptedIfOpen(householdID, id, acceptedBy string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE notifications SET accepted_by = ?, read = 1
		 WHERE household_id = ? AND id = ? AND accepted_by = ''`,
		acceptedBy, householdID, id,
	)
	if err != nil {
		return false, fmt.Errorf("accept notification: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteReadBefore removes read notifications older than cutoff.
func (s *NotificationStore) DeleteReadBefore(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM notifications WHERE read = 1 AND time < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete old notifications: %w", err)
	}
	return result.RowsAffected()
}
