// Package session keeps one household state store per browser session and
// routes cross-session events to the right stores.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/pawtrack/internal/metrics"
	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/persist"
	"github.com/dukerupert/pawtrack/internal/state"
)

// Snapshots is the persisted side of remember-me sessions.
type Snapshots interface {
	Prune(now time.Time) (int64, error)
	ListRemembered(now time.Time) ([]model.SessionSnapshot, error)
}

// DefaultIdleTimeout applies when the registry is built without a session
// TTL.
const DefaultIdleTimeout = 24 * time.Hour

type entry struct {
	store    *state.Store
	lastSeen time.Time
}

// Registry maps session tokens to stores.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	base     state.Options
	idle     time.Duration
	clock    func() time.Time
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewRegistry creates a registry whose stores share base's queue,
// publisher, metrics, clock and TTL. base.Token is ignored. Sessions idle
// for longer than base.SessionTTL are dropped by Expire.
func NewRegistry(base state.Options) *Registry {
	r := &Registry{
		sessions: make(map[string]*entry),
		base:     base,
		idle:     base.SessionTTL,
		clock:    base.Clock,
		metrics:  base.Metrics,
		logger:   base.Logger,
	}
	if r.idle <= 0 {
		r.idle = DefaultIdleTimeout
	}
	if r.clock == nil {
		r.clock = func() time.Time { return time.Now().UTC() }
	}
	if r.metrics == nil {
		r.metrics = metrics.NoopRecorder{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "session")
	return r
}

// Open builds a store with the registry's options without tracking it.
// Anonymous requests work on such a store until Adopt is called.
func (r *Registry) Open() *state.Store {
	return r.open("")
}

// Create opens a session and tracks it straight away.
func (r *Registry) Create() *state.Store {
	s := r.Open()
	r.Adopt(s)
	return s
}

// Adopt starts tracking s under its token.
func (r *Registry) Adopt(s *state.Store) {
	r.mu.Lock()
	r.sessions[s.Token()] = &entry{store: s, lastSeen: r.clock()}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetActiveSessions(n)
}

func (r *Registry) open(token string) *state.Store {
	opts := r.base
	opts.Token = token
	return state.NewStore(opts)
}

// Get returns the store for token and marks the session as used.
func (r *Registry) Get(token string) (*state.Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[token]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.clock()
	return e.store, true
}

// Remove forgets a session. Its persisted snapshot is handled by Logout.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	delete(r.sessions, token)
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetActiveSessions(n)
}

// Expire forgets sessions unused for longer than the idle timeout and
// returns how many were dropped.
func (r *Registry) Expire(now time.Time) int {
	cutoff := now.Add(-r.idle)
	r.mu.Lock()
	dropped := 0
	for token, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, token)
			dropped++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if dropped > 0 {
		r.metrics.SetActiveSessions(n)
		r.logger.Info("idle sessions expired", "count", dropped)
	}
	return dropped
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// lookup finds a store without counting it as use.
func (r *Registry) lookup(token string) (*state.Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[token]
	if !ok {
		return nil, false
	}
	return e.store, true
}

// Household returns the live stores holding householdID.
func (r *Registry) Household(householdID string) []*state.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*state.Store
	for _, e := range r.sessions {
		if e.store.HouseholdID() == householdID {
			out = append(out, e.store)
		}
	}
	return out
}

// Representatives returns one live store per loaded household.
func (r *Registry) Representatives() map[string]*state.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*state.Store)
	for _, e := range r.sessions {
		hid := e.store.HouseholdID()
		if hid == "" {
			continue
		}
		if _, ok := out[hid]; !ok {
			out[hid] = e.store
		}
	}
	return out
}

// Deliver merges a notification into every session of the household
// except the one that produced it.
func (r *Registry) Deliver(origin, householdID string, n model.Notification) {
	for _, s := range r.Household(householdID) {
		if s.Token() == origin {
			continue
		}
		if _, err := s.Dispatch(state.ReceiveNotification{Notification: n}); err != nil {
			r.logger.Warn("deliver notification", "household_id", householdID, "notification_id", n.ID, "error", err)
		}
	}
}

// HandleCommit publishes a swap acceptance once storage has recorded it as
// the winner. Sessions withhold these until then.
func (r *Registry) HandleCommit(e persist.Effect) {
	if e.Kind != persist.KindAcceptSwap || e.Notification == nil || r.base.Publisher == nil {
		return
	}
	r.base.Publisher.Publish(e.Origin, e.HouseholdID, *e.Notification)
}

// HandleConflict routes a lost swap acceptance back to the session that
// attempted it.
func (r *Registry) HandleConflict(e persist.Effect, c *persist.ConflictError) {
	s, ok := r.lookup(e.Origin)
	if !ok {
		r.logger.Info("swap conflict for closed session", "household_id", e.HouseholdID, "request_id", c.RequestID)
		return
	}
	a := state.SwapConflict{RequestID: c.RequestID, Winner: c.Winner, Walk: c.Walk}
	if e.Notification != nil {
		a.AcceptedID = e.Notification.ID
	}
	if _, err := s.Dispatch(a); err != nil {
		r.logger.Warn("reconcile swap conflict", "household_id", e.HouseholdID, "request_id", c.RequestID, "error", err)
	}
}

// Restore drops stale snapshots and reopens every remembered session.
// Snapshots that fail to decode are skipped.
func (r *Registry) Restore(snaps Snapshots, now time.Time) (int, error) {
	pruned, err := snaps.Prune(now)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	list, err := snaps.ListRemembered(now)
	if err != nil {
		return 0, fmt.Errorf("list remembered sessions: %w", err)
	}

	restored := 0
	for _, snap := range list {
		s := r.open(snap.Token)
		if err := s.Restore(snap.Data); err != nil {
			continue
		}
		r.Adopt(s)
		restored++
	}
	r.logger.Info("sessions restored", "restored", restored, "pruned", pruned)
	return restored, nil
}
