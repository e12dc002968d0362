package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/pawtrack/internal/model"
)

type WalkStore struct {
	db dbtx
}

func NewWalkStore(db *sql.DB) *WalkStore {
	return &WalkStore{db: db}
}

func (s *WalkStore) withTx(tx *sql.Tx) *WalkStore {
	return &WalkStore{db: tx}
}

const walkCols = `id, date, assigned_to, status, start_time, end_time, duration, activity, dog_mood, swap_requested_by, notes`

func scanWalk(scanner interface{ Scan(...any) error }) (*model.Walk, error) {
	var (
		w        model.Walk
		date     string
		start    sql.NullString
		end      sql.NullString
		duration sql.NullInt64
		activity sql.NullString
	)
	err := scanner.Scan(&w.ID, &date, &w.AssignedTo, &w.Status, &start, &end, &duration, &activity, &w.DogMood, &w.SwapRequestedBy, &w.Notes)
	if err != nil {
		return nil, err
	}
	if w.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if w.StartTime, err = parseNullTime(start); err != nil {
		return nil, err
	}
	if w.EndTime, err = parseNullTime(end); err != nil {
		return nil, err
	}
	if duration.Valid {
		d := int(duration.Int64)
		w.Duration = &d
	}
	if activity.Valid && activity.String != "" {
		var a model.Activity
		if err := json.Unmarshal([]byte(activity.String), &a); err != nil {
			return nil, fmt.Errorf("decode activity for walk %s: %w", w.ID, err)
		}
		w.Activity = &a
	}
	return &w, nil
}

func (s *WalkStore) Upsert(householdID string, w model.Walk) error {
	var activity sql.NullString
	if w.Activity != nil {
		data, err := json.Marshal(w.Activity)
		if err != nil {
			return fmt.Errorf("encode activity: %w", err)
		}
		activity = sql.NullString{String: string(data), Valid: true}
	}
	var duration sql.NullInt64
	if w.Duration != nil {
		duration = sql.NullInt64{Int64: int64(*w.Duration), Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO walks (household_id, `+walkCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   date = excluded.date, assigned_to = excluded.assigned_to, status = excluded.status,
		   start_time = excluded.start_time, end_time = excluded.end_time, duration = excluded.duration,
		   activity = excluded.activity, dog_mood = excluded.dog_mood,
		   swap_requested_by = excluded.swap_requested_by, notes = excluded.notes`,
		householdID, w.ID, formatTime(w.Date), w.AssignedTo, w.Status,
		formatNullTime(w.StartTime), formatNullTime(w.EndTime), duration, activity,
		w.DogMood, w.SwapRequestedBy, w.Notes,
	)
	if err != nil {
		return fmt.Errorf("upsert walk: %w", err)
	}
	return nil
}

func (s *WalkStore) GetByID(householdID, id string) (*model.Walk, error) {
	row := s.db.QueryRow(`SELECT `+walkCols+` FROM walks WHERE household_id = ? AND id = ?`, householdID, id)
	w, err := scanWalk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get walk: %w", err)
	}
	return w, nil
}

// ListByHousehold returns walks in insertion order.
func (s *WalkStore) ListByHousehold(householdID string) ([]model.Walk, error) {
	rows, err := s.db.Query(`SELECT `+walkCols+` FROM walks WHERE household_id = ? ORDER BY rowid ASC`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list walks: %w", err)
	}
	defer rows.Close()

	walks := []model.Walk{}
	for rows.Next() {
		w, err := scanWalk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan walk: %w", err)
		}
		walks = append(walks, *w)
	}
	return walks, rows.Err()
}

func (s *WalkStore) Delete(householdID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{householdID}, stringArgs(ids)...)
	_, err := s.db.Exec(`DELETE FROM walks WHERE household_id = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete walks: %w", err)
	}
	return nil
}
