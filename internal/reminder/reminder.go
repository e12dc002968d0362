// Package reminder runs the periodic household jobs: walk reminders,
// missed-walk notices and storage cleanup.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/dukerupert/pawtrack/internal/feed"
	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/state"
)

// Sessions exposes one live store per loaded household and drops the idle
// ones.
type Sessions interface {
	Representatives() map[string]*state.Store
	Expire(now time.Time) int
}

// Households is the read side used for households nobody has open.
type Households interface {
	HouseholdIDs(ctx context.Context) ([]string, error)
	LoadHousehold(ctx context.Context, householdID string) (model.HouseholdState, error)
}

// Cleaner removes expired records.
type Cleaner interface {
	DeleteReadBefore(cutoff time.Time) (int64, error)
	DeleteExpired(now time.Time) (int64, error)
}

type Config struct {
	Lead            time.Duration
	Grace           time.Duration
	CheckInterval   time.Duration
	CleanupInterval time.Duration
}

// Runner holds the job bodies. Households with a live session are checked
// through that session so every session sees the result; the rest are
// checked against storage directly.
type Runner struct {
	cfg        Config
	sessions   Sessions
	households Households
	cleaner    Cleaner
	queue      state.Enqueuer
	publisher  state.Publisher
	clock      func() time.Time
	newID      func() string
	logger     *slog.Logger
}

func NewRunner(cfg Config, sessions Sessions, households Households, cleaner Cleaner, queue state.Enqueuer, publisher state.Publisher, logger *slog.Logger) *Runner {
	env := state.NewEnv()
	return &Runner{
		cfg:        cfg,
		sessions:   sessions,
		households: households,
		cleaner:    cleaner,
		queue:      queue,
		publisher:  publisher,
		clock:      func() time.Time { return time.Now().UTC() },
		newID:      env.NewID,
		logger:     logger.With("component", "reminder"),
	}
}

// CheckReminders emits due reminders and missed-walk notices for every
// household.
func (r *Runner) CheckReminders(ctx context.Context) {
	action := state.CheckReminders{Lead: r.cfg.Lead, Grace: r.cfg.Grace}
	live := r.sessions.Representatives()
	for hid, s := range live {
		res, err := s.Dispatch(action)
		if err != nil {
			r.logger.Warn("check reminders", "household_id", hid, "error", err)
			continue
		}
		if len(res.Notifications) > 0 {
			r.logger.Info("reminders sent", "household_id", hid, "count", len(res.Notifications))
		}
	}

	ids, err := r.households.HouseholdIDs(ctx)
	if err != nil {
		r.logger.Error("list households", "error", err)
		return
	}
	for _, hid := range ids {
		if _, ok := live[hid]; ok {
			continue
		}
		if err := r.checkStored(ctx, hid, action); err != nil {
			r.logger.Warn("check reminders", "household_id", hid, "error", err)
		}
	}
}

func (r *Runner) checkStored(ctx context.Context, householdID string, action state.CheckReminders) error {
	s, err := r.households.LoadHousehold(ctx, householdID)
	if err != nil {
		return fmt.Errorf("load household: %w", err)
	}
	if len(s.Members) == 0 {
		return nil
	}
	s.IsRegistered = true
	s.CurrentUser = s.Members[0].ID

	res, err := state.Apply(state.Env{Now: r.clock(), NewID: r.newID}, s, action)
	if err != nil {
		return err
	}
	for _, e := range res.Effects {
		if err := r.queue.Enqueue(e); err != nil {
			return err
		}
	}
	for _, n := range res.Published() {
		r.publisher.Publish("", householdID, n)
	}
	return nil
}

// Cleanup drops read notifications past retention, expired session rows
// and idle live sessions.
func (r *Runner) Cleanup() {
	now := r.clock()
	r.sessions.Expire(now)
	n, err := r.cleaner.DeleteReadBefore(now.Add(-feed.ReadRetention))
	if err != nil {
		r.logger.Warn("notification cleanup", "error", err)
	} else if n > 0 {
		r.logger.Info("old notifications removed", "count", n)
	}
	s, err := r.cleaner.DeleteExpired(now)
	if err != nil {
		r.logger.Warn("session cleanup", "error", err)
	} else if s > 0 {
		r.logger.Info("expired sessions removed", "count", s)
	}
}

// Scheduler runs a Runner's jobs on gocron.
type Scheduler struct {
	scheduler gocron.Scheduler
	runner    *Runner
	logger    *slog.Logger
}

func NewScheduler(runner *Runner) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}
	sched := &Scheduler{scheduler: s, runner: runner, logger: runner.logger}

	if _, err := s.NewJob(
		gocron.DurationJob(runner.cfg.CheckInterval),
		gocron.NewTask(func() { runner.CheckReminders(context.Background()) }),
		gocron.WithName("walk-reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("schedule reminders: %w", err)
	}
	if _, err := s.NewJob(
		gocron.DurationJob(runner.cfg.CleanupInterval),
		gocron.NewTask(runner.Cleanup),
		gocron.WithName("cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("schedule cleanup: %w", err)
	}
	return sched, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler")
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	s.logger.Info("stopping scheduler")
	return s.scheduler.Shutdown()
}

