package model

import "fmt"

// ValidateWalk checks the field invariants a walk must hold in every state:
// duration is set only when completed and swapRequestedBy only while a swap
// is pending.
func ValidateWalk(w Walk) error {
	if w.ID == "" {
		return fmt.Errorf("%w: walk id is empty", ErrInvalidState)
	}
	if !w.Status.Valid() {
		return fmt.Errorf("%w: walk %s has unknown status %q", ErrInvalidState, w.ID, w.Status)
	}
	if (w.Duration != nil) != (w.Status == WalkCompleted) {
		return fmt.Errorf("%w: walk %s duration set=%t with status %q", ErrInvalidState, w.ID, w.Duration != nil, w.Status)
	}
	if (w.SwapRequestedBy != "") != (w.Status == WalkSwapRequested) {
		return fmt.Errorf("%w: walk %s swap requester set=%t with status %q", ErrInvalidState, w.ID, w.SwapRequestedBy != "", w.Status)
	}
	if w.Status == WalkInProgress && w.StartTime == nil {
		return fmt.Errorf("%w: walk %s in progress without start time", ErrInvalidState, w.ID)
	}
	if !w.DogMood.Valid() {
		return fmt.Errorf("%w: walk %s has unknown mood %q", ErrInvalidState, w.ID, w.DogMood)
	}
	return nil
}

// Validate checks the aggregate invariants of a household snapshot.
func (s *HouseholdState) Validate() error {
	if !s.IsRegistered {
		return nil
	}
	if s.HouseholdID == "" {
		return fmt.Errorf("%w: registered household without id", ErrInvalidState)
	}
	members := make(map[string]struct{}, len(s.Members))
	for _, m := range s.Members {
		if m.ID == "" {
			return fmt.Errorf("%w: member without id", ErrInvalidState)
		}
		if !m.Role.Valid() {
			return fmt.Errorf("%w: member %s has unknown role %q", ErrInvalidState, m.ID, m.Role)
		}
		members[m.ID] = struct{}{}
	}
	if _, ok := members[s.CurrentUser]; !ok {
		return fmt.Errorf("%w: current user %q is not a member", ErrInvalidState, s.CurrentUser)
	}
	if !s.Dog.EnergyLevel.Valid() {
		return fmt.Errorf("%w: unknown energy level %q", ErrInvalidState, s.Dog.EnergyLevel)
	}
	for _, w := range s.Walks {
		if err := ValidateWalk(w); err != nil {
			return err
		}
	}
	for _, n := range s.Notifications {
		if !n.Type.Valid() {
			return fmt.Errorf("%w: notification %s has unknown type %q", ErrInvalidState, n.ID, n.Type)
		}
	}
	if s.CurrentWalkID != "" {
		w, ok := s.CurrentWalk()
		if !ok {
			return fmt.Errorf("%w: current walk %s not found", ErrInvalidState, s.CurrentWalkID)
		}
		if w.Status != WalkInProgress || w.AssignedTo != s.CurrentUser {
			return fmt.Errorf("%w: current walk %s is %q assigned to %s", ErrInvalidState, w.ID, w.Status, w.AssignedTo)
		}
	}
	return nil
}
