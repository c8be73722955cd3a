package populate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"moviecatalog/internal/metrics"
	"moviecatalog/internal/models"
	"moviecatalog/internal/repository"
	"moviecatalog/internal/repository/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func candidates(n int) []models.Movie {
	out := make([]models.Movie, n)
	for i := range out {
		out[i] = models.Movie{Name: fmt.Sprintf("m%d", i+1), Description: "d", Duration: 100}
	}
	return out
}

// start runs the worker and returns a func that stops it and waits for Run
// to return.
func start(t *testing.T, q *Queue) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("run err=%v want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("worker did not stop")
		}
	}
}

func wait(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func storedNames(t *testing.T, s *memory.Store) []string {
	t.Helper()
	items, err := s.ListMovies(context.Background(), repository.ListMoviesParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	out := make([]string, 0, len(items))
	for _, m := range items {
		out = append(out, m.Name)
	}
	return out
}

// recordingStore counts calls and the peak number of concurrent tasks, and
// fails inserts for the names in failOn.
type recordingStore struct {
	*memory.Store
	failOn  map[string]error
	panicOn string

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *recordingStore) FindMovieByName(ctx context.Context, name string) (*models.Movie, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if name == s.panicOn {
		panic("store exploded")
	}
	return s.Store.FindMovieByName(ctx, name)
}

func (s *recordingStore) InsertMovie(ctx context.Context, item *models.Movie) error {
	if err := s.failOn[item.Name]; err != nil {
		return err
	}
	return s.Store.InsertMovie(ctx, item)
}

func TestQueueProcessesInSubmissionOrder(t *testing.T) {
	store := memory.New()
	var mu sync.Mutex
	var seqs []uint64
	q := New(store, nil, WithObserver(func(r Result) {
		mu.Lock()
		seqs = append(seqs, r.Seq)
		mu.Unlock()
	}))
	for _, m := range candidates(5) {
		q.Enqueue(m)
	}
	stop := start(t, q)
	defer stop()
	wait(t, q)

	got := storedNames(t, store)
	want := []string{"m1", "m2", "m3", "m4", "m5"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("stored=%v want %v", got, want)
	}
	mu.Lock()
	defer mu.Unlock()
	for i, s := range seqs {
		if s != uint64(i+1) {
			t.Fatalf("seqs=%v want 1..5", seqs)
		}
	}
}

func TestQueueSkipsStoredNames(t *testing.T) {
	store := memory.New()
	q := New(store, nil)
	stop := start(t, q)
	defer stop()

	q.EnqueueAll(candidates(3))
	q.EnqueueAll(candidates(3))
	wait(t, q)
	q.EnqueueAll(candidates(3))
	wait(t, q)

	n, _ := store.CountMovies(context.Background())
	if n != 3 {
		t.Fatalf("count=%d want 3", n)
	}
	st := q.Stats()
	if st.Enqueued != 9 || st.Inserted != 3 || st.Skipped != 6 || st.Failed != 0 {
		t.Fatalf("stats=%+v", st)
	}
	if st.Pending != 0 || st.Busy {
		t.Fatalf("queue not drained: %+v", st)
	}
}

func TestQueueConcurrentEnqueueIsSerialized(t *testing.T) {
	store := &recordingStore{Store: memory.New()}
	q := New(store, nil)
	stop := start(t, q)
	defer stop()

	seeds := candidates(20)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.EnqueueAll(seeds)
		}()
	}
	wg.Wait()
	wait(t, q)

	n, _ := store.CountMovies(context.Background())
	if n != 20 {
		t.Fatalf("count=%d want 20", n)
	}
	if p := store.peak.Load(); p != 1 {
		t.Fatalf("peak in-flight tasks=%d want 1", p)
	}
}

func TestQueueFailureDoesNotHaltWorker(t *testing.T) {
	store := &recordingStore{
		Store:  memory.New(),
		failOn: map[string]error{"m3": errors.New("disk full")},
	}
	var mu sync.Mutex
	var failed []Result
	q := New(store, nil, WithObserver(func(r Result) {
		if r.Outcome == OutcomeFailed {
			mu.Lock()
			failed = append(failed, r)
			mu.Unlock()
		}
	}))
	stop := start(t, q)
	defer stop()

	q.EnqueueAll(candidates(5))
	wait(t, q)

	got := storedNames(t, store.Store)
	want := []string{"m1", "m2", "m4", "m5"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("stored=%v want %v", got, want)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(failed) != 1 || failed[0].Name != "m3" || failed[0].Err == nil {
		t.Fatalf("failed=%+v", failed)
	}
	if st := q.Stats(); st.Failed != 1 || st.Inserted != 4 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestQueueSurvivesPanickingStore(t *testing.T) {
	store := &recordingStore{Store: memory.New(), panicOn: "m1"}
	q := New(store, nil, WithObserver(func(Result) { panic("observer exploded") }))
	stop := start(t, q)
	defer stop()

	q.EnqueueAll(candidates(2))
	wait(t, q)

	if got := storedNames(t, store.Store); fmt.Sprint(got) != "[m2]" {
		t.Fatalf("stored=%v want [m2]", got)
	}
	if st := q.Stats(); st.Failed != 1 || st.Inserted != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestEnqueueDoesNotBlockWithoutWorker(t *testing.T) {
	q := New(memory.New(), nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			q.Enqueue(models.Movie{Name: "x"})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("enqueue blocked")
	}
	if st := q.Stats(); st.Pending != 10000 || st.Enqueued != 10000 {
		t.Fatalf("stats=%+v", st)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("wait err=%v want deadline exceeded", err)
	}
}

func TestEnqueueCopiesRecord(t *testing.T) {
	store := memory.New()
	q := New(store, nil)
	stop := start(t, q)
	defer stop()

	m := models.Movie{ID: 42, Name: "Alien", CreatedAt: time.Unix(1, 0)}
	q.Enqueue(m)
	wait(t, q)

	if m.ID != 42 {
		t.Fatalf("caller record mutated: id=%d", m.ID)
	}
	got, _ := store.FindMovieByName(context.Background(), "Alien")
	if got == nil || got.ID != 1 {
		t.Fatalf("got=%+v want store-assigned id 1", got)
	}
}

func TestRunRejectsSecondWorker(t *testing.T) {
	q := New(memory.New(), nil)
	stop := start(t, q)
	defer stop()

	deadline := time.Now().Add(2 * time.Second)
	for !q.Stats().Running {
		if time.Now().After(deadline) {
			t.Fatalf("worker never started")
		}
		time.Sleep(time.Millisecond)
	}
	if err := q.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("err=%v want ErrAlreadyRunning", err)
	}
}

func TestQueueMetrics(t *testing.T) {
	m := metrics.New()
	store := &recordingStore{
		Store:  memory.New(),
		failOn: map[string]error{"m2": errors.New("boom")},
	}
	q := New(store, nil, WithMetrics(m), WithTaskTimeout(time.Second))
	stop := start(t, q)
	defer stop()

	q.EnqueueAll(candidates(3))
	q.Enqueue(models.Movie{Name: "m1"})
	wait(t, q)

	for outcome, want := range map[Outcome]float64{OutcomeInserted: 2, OutcomeSkipped: 1, OutcomeFailed: 1} {
		if got := testutil.ToFloat64(m.PopulationTasks.WithLabelValues(string(outcome))); got != want {
			t.Fatalf("%s=%v want %v", outcome, got, want)
		}
	}
	if got := testutil.ToFloat64(m.PopulationPending); got != 0 {
		t.Fatalf("pending=%v want 0", got)
	}
}
