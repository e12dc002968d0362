package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/pawtrack/internal/metrics"
	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/persist"
)

// Enqueuer accepts persistence effects without blocking.
type Enqueuer interface {
	Enqueue(e persist.Effect) error
}

// Publisher delivers newly created notifications to the rest of the
// household.
type Publisher interface {
	Publish(origin, householdID string, n model.Notification)
}

// Repository is the read side used to hydrate a session at login.
type Repository interface {
	HouseholdsByName(ctx context.Context, name string) ([]model.Household, error)
	LoadHousehold(ctx context.Context, householdID string) (model.HouseholdState, error)
}

type Options struct {
	Token      string
	Queue      Enqueuer
	Publisher  Publisher
	Metrics    metrics.Recorder
	Logger     *slog.Logger
	Clock      func() time.Time
	NewID      func() string
	SessionTTL time.Duration
}

// Store holds one session's household state. All transitions run under a
// single lock, complete in memory first, and only then queue their writes.
type Store struct {
	mu    sync.Mutex
	state model.HouseholdState

	token      string
	queue      Enqueuer
	publisher  Publisher
	metrics    metrics.Recorder
	logger     *slog.Logger
	clock      func() time.Time
	newID      func() string
	sessionTTL time.Duration
}

func NewStore(opts Options) *Store {
	s := &Store{
		state:      Fresh(),
		token:      opts.Token,
		queue:      opts.Queue,
		publisher:  opts.Publisher,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		clock:      opts.Clock,
		newID:      opts.NewID,
		sessionTTL: opts.SessionTTL,
	}
	if s.token == "" {
		s.token = uuid.NewString()
	}
	if s.metrics == nil {
		s.metrics = metrics.NoopRecorder{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "state")
	if s.clock == nil {
		s.clock = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 30 * 24 * time.Hour
	}
	return s
}

func (s *Store) Token() string { return s.token }

func (s *Store) env() Env {
	return Env{Now: s.clock(), NewID: s.newID}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() model.HouseholdState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// HouseholdID returns the id of the loaded household, or "".
func (s *Store) HouseholdID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.HouseholdID
}

// Dispatch applies a to the current state.
func (s *Store) Dispatch(a Action) (Result, error) {
	s.mu.Lock()
	res, err := Apply(s.env(), s.state, a)
	if err != nil {
		s.mu.Unlock()
		s.metrics.IncTransition(a.Name(), metrics.ResultRejected)
		s.logger.Debug("transition rejected", "action", a.Name(), "household_id", res.State.HouseholdID, "error", err)
		return Result{State: res.State.Clone()}, err
	}
	s.commit(res)
	s.mu.Unlock()

	s.metrics.IncTransition(a.Name(), metrics.ResultOK)
	s.deliver(res)
	res.State = res.State.Clone()
	return res, nil
}

// commit installs the new state and queues its effects. Called with mu held
// so effects from consecutive transitions keep their order.
func (s *Store) commit(res Result) {
	s.state = res.State
	for _, e := range res.Effects {
		e.Origin = s.token
		s.enqueue(e)
	}
	s.saveSession()
}

func (s *Store) enqueue(e persist.Effect) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(e); err != nil {
		s.logger.Warn("state change kept local only", "effect", e.Kind, "household_id", e.HouseholdID, "error", err)
	}
}

func (s *Store) saveSession() {
	if !s.state.IsRegistered {
		return
	}
	data, err := Encode(s.state)
	if err != nil {
		s.logger.Warn("encode session snapshot", "error", err)
		return
	}
	now := s.clock()
	s.enqueue(persist.Effect{
		Kind:        persist.KindSaveSession,
		HouseholdID: s.state.HouseholdID,
		Origin:      s.token,
		Session: &model.SessionSnapshot{
			Token:       s.token,
			HouseholdID: s.state.HouseholdID,
			Data:        data,
			Remember:    s.state.RememberMe,
			ExpiresAt:   now.Add(s.sessionTTL),
			UpdatedAt:   now,
		},
	})
}

func (s *Store) deliver(res Result) {
	for _, n := range res.Notifications {
		s.metrics.IncNotification(string(n.Type))
	}
	if s.publisher == nil {
		return
	}
	for _, n := range res.Published() {
		s.publisher.Publish(s.token, res.State.HouseholdID, n)
	}
}

// Register creates a new household and makes it this session's state. The
// shared secret is stored as a bcrypt hash.
func (s *Store) Register(r Registration) (Result, error) {
	if r.Secret == "" {
		return Result{}, fmt.Errorf("register: %w: secret is required", model.ErrInvalidState)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(r.Secret), bcrypt.DefaultCost)
	if err != nil {
		return Result{}, fmt.Errorf("hash secret: %w", err)
	}

	s.mu.Lock()
	if s.state.IsRegistered {
		s.mu.Unlock()
		return Result{}, fmt.Errorf("register: %w: session already holds a household", model.ErrInvalidState)
	}
	res, err := NewHousehold(s.env(), r)
	if err != nil {
		s.mu.Unlock()
		return Result{}, err
	}
	for i := range res.Effects {
		if res.Effects[i].Household != nil {
			res.Effects[i].Household.SecretHash = string(hash)
		}
	}
	s.commit(res)
	s.mu.Unlock()

	s.metrics.IncTransition("register", metrics.ResultOK)
	s.logger.Info("household registered", "household_id", res.State.HouseholdID, "members", len(res.State.Members))
	s.deliver(res)
	res.State = res.State.Clone()
	return res, nil
}

// ErrBadCredentials is returned when no household matches name and secret.
var ErrBadCredentials = fmt.Errorf("%w: invalid household name or secret", model.ErrNotAuthorized)

// Login hydrates the session from repo. Households are matched by name
// and secret; memberID picks the acting member, defaulting to the first.
func (s *Store) Login(ctx context.Context, repo Repository, name, secret, memberID string, remember bool) (model.HouseholdState, error) {
	households, err := repo.HouseholdsByName(ctx, name)
	if err != nil {
		return model.HouseholdState{}, fmt.Errorf("login: %w: %v", model.ErrPersistenceUnavailable, err)
	}
	var match *model.Household
	for i := range households {
		if bcrypt.CompareHashAndPassword([]byte(households[i].SecretHash), []byte(secret)) == nil {
			match = &households[i]
			break
		}
	}
	if match == nil {
		return model.HouseholdState{}, ErrBadCredentials
	}

	loaded, err := repo.LoadHousehold(ctx, match.ID)
	if err != nil {
		return model.HouseholdState{}, fmt.Errorf("login: %w: %v", model.ErrPersistenceUnavailable, err)
	}
	if len(loaded.Members) == 0 {
		return model.HouseholdState{}, fmt.Errorf("login: household %s has no members: %w", match.ID, model.ErrNotFound)
	}
	if memberID == "" {
		memberID = loaded.Members[0].ID
	}
	if loaded.MemberIndex(memberID) < 0 {
		return model.HouseholdState{}, fmt.Errorf("login: member %s: %w", memberID, model.ErrNotFound)
	}

	loaded.IsRegistered = true
	loaded.HouseholdID = match.ID
	loaded.HouseholdName = match.Name
	loaded.CurrentUser = memberID
	loaded.CurrentWalkID = inProgressFor(loaded.Walks, memberID)
	loaded.RememberMe = remember
	if err := loaded.Validate(); err != nil {
		return model.HouseholdState{}, fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	s.commit(Result{State: loaded})
	s.mu.Unlock()

	s.metrics.IncTransition("login", metrics.ResultOK)
	s.logger.Info("household loaded", "household_id", match.ID, "member_id", memberID)
	return loaded.Clone(), nil
}

// Logout clears the session and forgets any remembered snapshot.
func (s *Store) Logout() {
	s.mu.Lock()
	householdID := s.state.HouseholdID
	s.state = Fresh()
	s.enqueue(persist.Effect{Kind: persist.KindDeleteSession, HouseholdID: householdID, Origin: s.token, IDs: []string{s.token}})
	s.mu.Unlock()

	s.metrics.IncTransition("logout", metrics.ResultOK)
}

// Restore replaces the state with a decoded snapshot. Undecodable data
// leaves the session fresh.
func (s *Store) Restore(data []byte) error {
	restored, err := Decode(data)
	s.mu.Lock()
	s.state = restored
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("discarding unreadable session snapshot", "error", err)
		return err
	}
	return nil
}
