package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/pawtrack/internal/model"
)

// SessionStore keeps encoded household snapshots per session token.
type SessionStore struct {
	db dbtx
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionCols = `token, household_id, data, remember, expires_at, updated_at`

func scanSession(scanner interface{ Scan(...any) error }) (*model.SessionSnapshot, error) {
	var snap model.SessionSnapshot
	var expires, updated string
	if err := scanner.Scan(&snap.Token, &snap.HouseholdID, &snap.Data, &snap.Remember, &expires, &updated); err != nil {
		return nil, err
	}
	var err error
	if snap.ExpiresAt, err = parseTime(expires); err != nil {
		return nil, err
	}
	if snap.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *SessionStore) Save(snap model.SessionSnapshot) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (`+sessionCols+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET
		   household_id = excluded.household_id, data = excluded.data, remember = excluded.remember,
		   expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		snap.Token, snap.HouseholdID, snap.Data, snap.Remember, formatTime(snap.ExpiresAt), formatTime(snap.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(token string) (*model.SessionSnapshot, error) {
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE token = ?`, token)
	snap, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return snap, nil
}

func (s *SessionStore) Delete(token string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListRemembered returns unexpired remember-me sessions.
func (s *SessionStore) ListRemembered(now time.Time) ([]model.SessionSnapshot, error) {
	rows, err := s.db.Query(
		`SELECT `+sessionCols+` FROM sessions WHERE remember = 1 AND expires_at > ? ORDER BY updated_at ASC`,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("list remembered sessions: %w", err)
	}
	defer rows.Close()

	var out []model.SessionSnapshot
	for rows.Next() {
		snap, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

// Prune drops expired sessions and every session not marked remember-me.
// Called at startup, when in-memory sessions from the last run are gone.
func (s *SessionStore) Prune(now time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE remember = 0 OR expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return result.RowsAffected()
}

// DeleteExpired drops sessions past their expiry.
func (s *SessionStore) DeleteExpired(now time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
