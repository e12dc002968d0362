package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/pawtrack/internal/model"
)

type HouseholdStore struct {
	db dbtx
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func (s *HouseholdStore) withTx(tx *sql.Tx) *HouseholdStore {
	return &HouseholdStore{db: tx}
}

const householdCols = `id, name, secret_hash, created_at`

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	var created string
	if err := scanner.Scan(&h.ID, &h.Name, &h.SecretHash, &created); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	h.CreatedAt = t
	return &h, nil
}

func (s *HouseholdStore) Create(h model.Household) error {
	_, err := s.db.Exec(
		`INSERT INTO households (`+householdCols+`) VALUES (?, ?, ?, ?)`,
		h.ID, h.Name, h.SecretHash, formatTime(h.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert household: %w", err)
	}
	return nil
}

func (s *HouseholdStore) GetByID(id string) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

// ListByName returns every household registered under name, oldest first.
// Names are not unique; login disambiguates by secret.
func (s *HouseholdStore) ListByName(name string) ([]model.Household, error) {
	rows, err := s.db.Query(`SELECT `+householdCols+` FROM households WHERE name = ? ORDER BY created_at ASC`, name)
	if err != nil {
		return nil, fmt.Errorf("list households by name: %w", err)
	}
	defer rows.Close()

	var out []model.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// ListIDs returns the id of every household.
func (s *HouseholdStore) ListIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM households ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list household ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan household id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *HouseholdStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM households WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete household: %w", err)
	}
	return nil
}
