// Package populate drains candidate movies into the record store from a
// single background worker.
//
// Enqueue never blocks and never drops: tasks sit in an in-memory FIFO until
// the worker takes them, one at a time, in submission order. Each task
// inserts its movie unless a stored movie with the same name already exists.
// Failed tasks are logged and skipped; nothing is retried and nothing
// survives a restart.
package populate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"moviecatalog/internal/metrics"
	"moviecatalog/internal/models"
)

var ErrAlreadyRunning = errors.New("populate: worker already running")

// Store is the part of the record store the worker needs.
type Store interface {
	FindMovieByName(ctx context.Context, name string) (*models.Movie, error)
	InsertMovie(ctx context.Context, item *models.Movie) error
}

type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Result describes one finished task.
type Result struct {
	Seq        uint64        `json:"seq"`
	Name       string        `json:"name"`
	Outcome    Outcome       `json:"outcome"`
	MovieID    uint64        `json:"movieId,omitempty"`
	Error      string        `json:"error,omitempty"`
	Err        error         `json:"-"`
	Duration   time.Duration `json:"-"`
	Pending    int           `json:"pending"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// Observer is called on the worker goroutine after every task. It must not
// block for long.
type Observer func(Result)

type Stats struct {
	Enqueued uint64 `json:"enqueued"`
	Inserted uint64 `json:"inserted"`
	Skipped  uint64 `json:"skipped"`
	Failed   uint64 `json:"failed"`
	Pending  int    `json:"pending"`
	Busy     bool   `json:"busy"`
	Running  bool   `json:"running"`
}

type Option func(*Queue)

// WithTaskTimeout bounds the store I/O of a single task.
func WithTaskTimeout(d time.Duration) Option {
	return func(q *Queue) { q.taskTimeout = d }
}

func WithObserver(o Observer) Option {
	return func(q *Queue) {
		if o != nil {
			q.observers = append(q.observers, o)
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

type task struct {
	seq   uint64
	movie models.Movie
}

type Queue struct {
	store       Store
	logger      *zap.Logger
	taskTimeout time.Duration
	observers   []Observer
	metrics     *metrics.Metrics

	mu      sync.Mutex
	tasks   []task
	seq     uint64
	busy    bool
	waiters []chan struct{}

	wake    chan struct{}
	running atomic.Bool

	enqueued atomic.Uint64
	inserted atomic.Uint64
	skipped  atomic.Uint64
	failed   atomic.Uint64
}

func New(store Store, logger *zap.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		store:  store,
		logger: logger.Named("populate"),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue hands a candidate to the worker and returns its sequence number.
// The record is copied with identity and timestamps cleared.
func (q *Queue) Enqueue(m models.Movie) uint64 {
	m.ID = 0
	m.CreatedAt = time.Time{}
	m.UpdatedAt = time.Time{}

	q.mu.Lock()
	q.seq++
	seq := q.seq
	q.tasks = append(q.tasks, task{seq: seq, movie: m})
	pending := len(q.tasks)
	q.mu.Unlock()

	q.enqueued.Add(1)
	q.setPending(pending)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return seq
}

// EnqueueAll enqueues items in order and returns how many were submitted.
func (q *Queue) EnqueueAll(items []models.Movie) int {
	for _, m := range items {
		q.Enqueue(m)
	}
	return len(items)
}

// Run is the worker loop. It returns ctx.Err() on shutdown; tasks still
// queued at that point stay in memory and are lost with the process.
func (q *Queue) Run(ctx context.Context) error {
	if q == nil {
		return nil
	}
	if !q.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer q.running.Store(false)
	q.logger.Info("population worker started")
	defer q.logger.Info("population worker stopped")

	for {
		if err := ctx.Err(); err != nil {
			q.release()
			return err
		}
		t, ok := q.next()
		if !ok {
			select {
			case <-ctx.Done():
				q.release()
				return ctx.Err()
			case <-q.wake:
			}
			continue
		}
		q.process(ctx, t)
	}
}

// Wait blocks until the FIFO is empty and no task is in flight.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	if len(q.tasks) == 0 && !q.busy {
		q.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	pending := len(q.tasks)
	busy := q.busy
	q.mu.Unlock()
	return Stats{
		Enqueued: q.enqueued.Load(),
		Inserted: q.inserted.Load(),
		Skipped:  q.skipped.Load(),
		Failed:   q.failed.Load(),
		Pending:  pending,
		Busy:     busy,
		Running:  q.running.Load(),
	}
}

// next pops the oldest task. When the FIFO is empty it marks the worker
// idle and wakes everyone blocked in Wait.
func (q *Queue) next() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		q.tasks = nil
		q.busy = false
		q.notifyWaitersLocked()
		return task{}, false
	}
	t := q.tasks[0]
	q.tasks[0] = task{}
	q.tasks = q.tasks[1:]
	q.busy = true
	return t, true
}

func (q *Queue) release() {
	q.mu.Lock()
	q.busy = false
	q.mu.Unlock()
}

func (q *Queue) notifyWaitersLocked() {
	for _, ch := range q.waiters {
		close(ch)
	}
	q.waiters = nil
}

func (q *Queue) process(ctx context.Context, t task) {
	start := time.Now()
	taskCtx, cancel := ctx, context.CancelFunc(func() {})
	if q.taskTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, q.taskTimeout)
	}
	outcome, id, err := q.insertIfAbsent(taskCtx, t.movie)
	cancel()

	res := Result{
		Seq:        t.seq,
		Name:       t.movie.Name,
		Outcome:    outcome,
		MovieID:    id,
		Err:        err,
		Duration:   time.Since(start),
		FinishedAt: time.Now().UTC(),
	}
	if err != nil {
		res.Error = err.Error()
	}
	q.mu.Lock()
	res.Pending = len(q.tasks)
	q.mu.Unlock()

	switch outcome {
	case OutcomeInserted:
		q.inserted.Add(1)
		q.logger.Debug("lazily inserted movie", zap.Uint64("seq", t.seq), zap.String("name", t.movie.Name), zap.Uint64("id", id))
	case OutcomeSkipped:
		q.skipped.Add(1)
		q.logger.Debug("movie already stored", zap.Uint64("seq", t.seq), zap.String("name", t.movie.Name))
	default:
		q.failed.Add(1)
		q.logger.Warn("population task failed", zap.Uint64("seq", t.seq), zap.String("name", t.movie.Name), zap.Error(err))
	}
	if q.metrics != nil {
		q.metrics.PopulationTasks.WithLabelValues(string(outcome)).Inc()
		q.metrics.TaskDuration.Observe(res.Duration.Seconds())
	}
	q.setPending(res.Pending)
	q.notify(res)
}

// insertIfAbsent is the whole task: look up by name, insert when missing.
// A panicking store counts as a failed task.
func (q *Queue) insertIfAbsent(ctx context.Context, m models.Movie) (outcome Outcome, id uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, id, err = OutcomeFailed, 0, fmt.Errorf("populate %q: panic: %v", m.Name, r)
		}
	}()
	if q.store == nil {
		return OutcomeFailed, 0, errors.New("populate: no store configured")
	}
	existing, err := q.store.FindMovieByName(ctx, m.Name)
	if err != nil {
		return OutcomeFailed, 0, fmt.Errorf("lookup %q: %w", m.Name, err)
	}
	if existing != nil {
		return OutcomeSkipped, existing.ID, nil
	}
	item := m
	if err := q.store.InsertMovie(ctx, &item); err != nil {
		return OutcomeFailed, 0, fmt.Errorf("insert %q: %w", m.Name, err)
	}
	return OutcomeInserted, item.ID, nil
}

func (q *Queue) notify(res Result) {
	for _, o := range q.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					q.logger.Error("population observer panicked", zap.Any("panic", r))
				}
			}()
			o(res)
		}()
	}
}

func (q *Queue) setPending(n int) {
	if q.metrics != nil {
		q.metrics.PopulationPending.Set(float64(n))
	}
}
