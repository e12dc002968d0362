package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/pawtrack/internal/model"
)

type MemberStore struct {
	db dbtx
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

func (s *MemberStore) withTx(tx *sql.Tx) *MemberStore {
	return &MemberStore{db: tx}
}

const memberCols = `id, name, email, avatar_ref, role, walk_count, total_walk_duration, achievements`

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	var achievements string
	err := scanner.Scan(&m.ID, &m.Name, &m.Email, &m.AvatarRef, &m.Role, &m.WalkCount, &m.TotalWalkDuration, &achievements)
	if err != nil {
		return nil, err
	}
	m.Achievements = decodeAchievements(achievements)
	return &m, nil
}

// decodeAchievements reads the stored label list. Rows written by older
// clients may hold objects or junk; only string labels survive.
func decodeAchievements(raw string) []string {
	out := []string{}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return out
	}
	for _, item := range items {
		var label string
		if json.Unmarshal(item, &label) == nil && label != "" {
			out = append(out, label)
			continue
		}
		var obj struct {
			Title string `json:"title"`
		}
		if json.Unmarshal(item, &obj) == nil && obj.Title != "" {
			out = append(out, obj.Title)
		}
	}
	return out
}

// Upsert inserts a member or updates every field but its household.
func (s *MemberStore) Upsert(householdID string, m model.Member) error {
	achievements := m.Achievements
	if achievements == nil {
		achievements = []string{}
	}
	data, err := json.Marshal(achievements)
	if err != nil {
		return fmt.Errorf("encode achievements: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO members (household_id, `+memberCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, email = excluded.email, avatar_ref = excluded.avatar_ref,
		   role = excluded.role, walk_count = excluded.walk_count,
		   total_walk_duration = excluded.total_walk_duration, achievements = excluded.achievements`,
		householdID, m.ID, m.Name, m.Email, m.AvatarRef, m.Role, m.WalkCount, m.TotalWalkDuration, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

func (s *MemberStore) Delete(householdID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{householdID}, stringArgs(ids)...)
	_, err := s.db.Exec(`DELETE FROM members WHERE household_id = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete members: %w", err)
	}
	return nil
}

// ListByHousehold returns the roster in the order members were added.
func (s *MemberStore) ListByHousehold(householdID string) ([]model.Member, error) {
	rows, err := s.db.Query(`SELECT `+memberCols+` FROM members WHERE household_id = ? ORDER BY rowid ASC`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func stringArgs(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
