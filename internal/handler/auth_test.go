package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/pawtrack/internal/middleware"
	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/session"
	"github.com/dukerupert/pawtrack/internal/state"
)

var registeredAt = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

type stateView struct {
	Notifications []json.RawMessage `json:"notifications"`
	UnreadCount   int               `json:"unread_count"`
}

func getState(t *testing.T, h *AuthHandler, s *state.Store) stateView {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req = req.WithContext(session.WithStore(req.Context(), s))
	rec := httptest.NewRecorder()
	h.State(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var v stateView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestStateHidesExpiredNotifications(t *testing.T) {
	s := state.NewStore(state.Options{Clock: func() time.Time { return registeredAt }})
	_, err := s.Register(state.Registration{
		HouseholdName: "Smiths",
		Secret:        "secret",
		Dog:           model.Dog{Name: "Rex"},
		Members:       []state.MemberDraft{{Name: "Alice"}},
	})
	require.NoError(t, err)

	h := NewAuthHandler(nil, nil, middleware.CookieOptions{}, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.clock = func() time.Time { return registeredAt.Add(time.Hour) }

	v := getState(t, h, s)
	assert.Len(t, v.Notifications, 1)
	assert.Equal(t, 1, v.UnreadCount)

	_, err = s.Dispatch(state.MarkAllRead{})
	require.NoError(t, err)
	v = getState(t, h, s)
	assert.Len(t, v.Notifications, 1)
	assert.Equal(t, 0, v.UnreadCount)

	h.clock = func() time.Time { return registeredAt.Add(8 * 24 * time.Hour) }
	v = getState(t, h, s)
	assert.Empty(t, v.Notifications)
	assert.Len(t, s.Snapshot().Notifications, 1)
}

type fakeTracker struct {
	adopted []*state.Store
	removed []string
}

func (f *fakeTracker) Adopt(s *state.Store) { f.adopted = append(f.adopted, s) }

func (f *fakeTracker) Remove(token string) { f.removed = append(f.removed, token) }

func TestRegisterAdoptsSession(t *testing.T) {
	tracker := &fakeTracker{}
	h := NewAuthHandler(nil, tracker, middleware.CookieOptions{}, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := state.NewStore(state.Options{Clock: func() time.Time { return registeredAt }})

	body := `{"household_name":"Smiths","secret":"secret","dog":{"name":"Rex"},"members":[{"name":"Alice"}],"remember_me":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(body))
	req = req.WithContext(session.WithStore(req.Context(), s))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, tracker.adopted, 1)
	assert.Same(t, s, tracker.adopted[0])
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, s.Token(), cookies[0].Value)
	assert.Equal(t, 3600, cookies[0].MaxAge)
}

func TestRegisterRejectedIsNotAdopted(t *testing.T) {
	tracker := &fakeTracker{}
	h := NewAuthHandler(nil, tracker, middleware.CookieOptions{}, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := state.NewStore(state.Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(`{"household_name":"Smiths"}`))
	req = req.WithContext(session.WithStore(req.Context(), s))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, tracker.adopted)
	assert.Empty(t, rec.Result().Cookies())
}
