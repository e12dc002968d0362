package session

import (
	"context"

	"github.com/dukerupert/pawtrack/internal/state"
)

type contextKey struct{}

func WithStore(ctx context.Context, s *state.Store) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (*state.Store, bool) {
	s, ok := ctx.Value(contextKey{}).(*state.Store)
	return s, ok && s != nil
}

// HouseholdID returns the household loaded in the request's session, or "".
func HouseholdID(ctx context.Context) string {
	s, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return s.HouseholdID()
}

// CurrentUser returns the acting member id, or "".
func CurrentUser(ctx context.Context) string {
	s, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return s.Snapshot().CurrentUser
}
