package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/pawtrack/internal/feed"
	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/persist"
	"github.com/dukerupert/pawtrack/internal/schedule"
)

// Env supplies the clock and id source to the reducer so transitions stay
// deterministic under test.
type Env struct {
	Now   time.Time
	NewID func() string
}

// NewEnv returns an Env for the current instant with uuid ids.
func NewEnv() Env {
	return Env{Now: time.Now().UTC(), NewID: uuid.NewString}
}

// Fresh is the unregistered state a session starts from.
func Fresh() model.HouseholdState {
	return model.HouseholdState{
		Members:       []model.Member{},
		Walks:         []model.Walk{},
		Notifications: []model.Notification{},
	}
}

type MemberDraft struct {
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	AvatarRef string     `json:"avatar_ref,omitempty"`
	Role      model.Role `json:"role,omitempty"`
}

// Registration creates a household. The first member becomes the Primary
// caretaker and the current user.
type Registration struct {
	HouseholdName string        `json:"household_name"`
	Secret        string        `json:"secret"`
	Dog           model.Dog     `json:"dog"`
	Members       []MemberDraft `json:"members"`
	RememberMe    bool          `json:"remember_me"`
}

// NewHousehold builds the initial state for r: the roster, the seed
// schedule and a welcome notice. The single effect creates every record.
func NewHousehold(env Env, r Registration) (Result, error) {
	name := strings.TrimSpace(r.HouseholdName)
	if name == "" {
		return Result{}, fmt.Errorf("register: %w: household name is required", model.ErrInvalidState)
	}
	if len(r.Members) == 0 {
		return Result{}, fmt.Errorf("register: %w: at least one member is required", model.ErrInvalidState)
	}
	if !r.Dog.EnergyLevel.Valid() {
		return Result{}, fmt.Errorf("register: %w: unknown energy level %q", model.ErrInvalidState, r.Dog.EnergyLevel)
	}

	members := make([]model.Member, 0, len(r.Members))
	for i, d := range r.Members {
		role := d.Role
		if i == 0 {
			role = model.RolePrimary
		} else if role == model.RolePrimary {
			role = model.RoleSecondary
		}
		m, err := newMember(env.NewID(), d.Name, d.Email, d.AvatarRef, role, model.RoleSecondary)
		if err != nil {
			return Result{}, fmt.Errorf("register: %w", err)
		}
		members = append(members, m)
	}

	welcome := feed.NewWelcome(env.NewID(), env.Now)
	s := model.HouseholdState{
		IsRegistered:  true,
		HouseholdID:   env.NewID(),
		HouseholdName: name,
		CurrentUser:   members[0].ID,
		Dog:           r.Dog,
		Members:       members,
		Walks:         schedule.Seed(members, env.Now, schedule.SeedDays, env.NewID),
		Notifications: []model.Notification{welcome},
		RememberMe:    r.RememberMe,
	}
	if err := s.Validate(); err != nil {
		return Result{}, fmt.Errorf("register: %w", err)
	}

	snapshot := s.Clone()
	return Result{
		State:         s,
		Notifications: []model.Notification{welcome},
		Effects: []persist.Effect{{
			Kind:        persist.KindCreateHousehold,
			HouseholdID: s.HouseholdID,
			Household:   &model.Household{ID: s.HouseholdID, Name: name, CreatedAt: env.Now},
			State:       &snapshot,
		}},
		Subject: s.HouseholdID,
	}, nil
}
