package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/pawtrack/internal/metrics"
	"github.com/dukerupert/pawtrack/internal/model"
)

const writeTimeout = 10 * time.Second

// Writer applies a single effect to the record store.
type Writer interface {
	Write(ctx context.Context, e Effect) error
}

// ConflictFunc is called when a conditional write lost a cross-session race.
type ConflictFunc func(e Effect, c *ConflictError)

// CommitFunc is called after an effect has been written.
type CommitFunc func(e Effect)

// Queue is a buffered, single-worker effect pipeline. Effects are written in
// the order they were enqueued.
type Queue struct {
	writer     Writer
	ch         chan Effect
	logger     *slog.Logger
	metrics    metrics.Recorder
	onConflict ConflictFunc
	onCommit   CommitFunc
	retryBase  time.Duration
	maxRetries uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	pending sync.WaitGroup
}

type Option func(*Queue)

func WithMetrics(r metrics.Recorder) Option {
	return func(q *Queue) { q.metrics = r }
}

func WithConflictHandler(fn ConflictFunc) Option {
	return func(q *Queue) { q.onConflict = fn }
}

func WithCommitHandler(fn CommitFunc) Option {
	return func(q *Queue) { q.onCommit = fn }
}

// WithRetry sets the exponential backoff base and the number of retries
// after the first attempt.
func WithRetry(base time.Duration, max uint64) Option {
	return func(q *Queue) {
		q.retryBase = base
		q.maxRetries = max
	}
}

// NewQueue creates a queue holding up to size effects.
func NewQueue(w Writer, size int, logger *slog.Logger, opts ...Option) *Queue {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		writer:     w,
		ch:         make(chan Effect, size),
		logger:     logger.With("component", "persist"),
		metrics:    metrics.NoopRecorder{},
		retryBase:  100 * time.Millisecond,
		maxRetries: 4,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// SetConflictHandler replaces the conflict callback. It must be called
// before Start.
func (q *Queue) SetConflictHandler(fn ConflictFunc) {
	q.onConflict = fn
}

// SetCommitHandler replaces the commit callback. It must be called before
// Start.
func (q *Queue) SetCommitHandler(fn CommitFunc) {
	q.onCommit = fn
}

// Enqueue hands e to the worker without blocking. A full queue drops the
// effect and reports ErrPersistenceUnavailable; the caller's in-memory
// state is unaffected either way.
func (q *Queue) Enqueue(e Effect) error {
	q.pending.Add(1)
	select {
	case q.ch <- e:
		return nil
	default:
		q.pending.Done()
		q.metrics.IncPersistFailure(string(e.Kind))
		q.logger.Warn("persist queue full, dropping effect", "effect", e.Kind, "household_id", e.HouseholdID)
		return fmt.Errorf("enqueue %s: %w", e.Kind, model.ErrPersistenceUnavailable)
	}
}

// Start begins the worker loop.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	ctx, q.cancel = context.WithCancel(ctx)
	q.done = make(chan struct{})
	q.mu.Unlock()

	go func() {
		defer close(q.done)
		for {
			select {
			case <-ctx.Done():
				q.drain()
				return
			case e := <-q.ch:
				q.write(e)
			}
		}
	}()
}

// Stop cancels the worker after writing what is already buffered.
func (q *Queue) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	done := q.done
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Flush blocks until every enqueued effect has been handled.
func (q *Queue) Flush() {
	q.pending.Wait()
}

// drain writes what is still buffered so a shutdown does not lose it.
func (q *Queue) drain() {
	for {
		select {
		case e := <-q.ch:
			q.write(e)
		default:
			return
		}
	}
}

// write runs under its own deadline: an effect is not cancelled once issued,
// only bounded.
func (q *Queue) write(e Effect) {
	defer q.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	b := retry.WithMaxRetries(q.maxRetries, retry.NewExponential(q.retryBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := q.writer.Write(ctx, e)
		if err == nil {
			return nil
		}
		if _, ok := AsConflict(err); ok {
			return err
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		if q.onCommit != nil {
			q.onCommit(e)
		}
		return
	}

	if c, ok := AsConflict(err); ok {
		q.logger.Info("swap accept lost to another session", "household_id", e.HouseholdID, "request_id", c.RequestID, "winner", c.Winner)
		if q.onConflict != nil {
			q.onConflict(e, c)
		}
		return
	}

	q.metrics.IncPersistFailure(string(e.Kind))
	q.logger.Warn("persist effect failed, continuing local only",
		"effect", e.Kind,
		"household_id", e.HouseholdID,
		"error", fmt.Errorf("%w: %v", model.ErrPersistenceUnavailable, err),
	)
}
