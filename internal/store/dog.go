package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/pawtrack/internal/model"
)

type DogStore struct {
	db dbtx
}

func NewDogStore(db *sql.DB) *DogStore {
	return &DogStore{db: db}
}

func (s *DogStore) withTx(tx *sql.Tx) *DogStore {
	return &DogStore{db: tx}
}

// Save writes the household's single dog profile.
func (s *DogStore) Save(householdID string, d model.Dog) error {
	_, err := s.db.Exec(
		`INSERT INTO dogs (household_id, name, breed, age, weight, energy_level, special_needs)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(household_id) DO UPDATE SET
		   name = excluded.name, breed = excluded.breed, age = excluded.age, weight = excluded.weight,
		   energy_level = excluded.energy_level, special_needs = excluded.special_needs`,
		householdID, d.Name, d.Breed, d.Age, d.Weight, d.EnergyLevel, d.SpecialNeeds,
	)
	if err != nil {
		return fmt.Errorf("save dog: %w", err)
	}
	return nil
}

func (s *DogStore) Get(householdID string) (*model.Dog, error) {
	var d model.Dog
	err := s.db.QueryRow(
		`SELECT name, breed, age, weight, energy_level, special_needs FROM dogs WHERE household_id = ?`,
		householdID,
	).Scan(&d.Name, &d.Breed, &d.Age, &d.Weight, &d.EnergyLevel, &d.SpecialNeeds)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dog: %w", err)
	}
	return &d, nil
}
