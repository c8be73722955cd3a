package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"moviecatalog/internal/models"
	"moviecatalog/internal/populate"
	"moviecatalog/internal/repository/memory"
	"moviecatalog/internal/seed"
)

func seedMovies(n int) []models.Movie {
	out := make([]models.Movie, n)
	for i := range out {
		out[i] = models.Movie{
			Name:        fmt.Sprintf("Seed Movie %02d", i+1),
			Description: "from the seed file",
			Rating:      decimal.NewFromInt(int64(i % 10)),
			ReleaseDate: models.NewDate(time.Date(2000+i, 1, 1, 0, 0, 0, 0, time.UTC)),
			Duration:    90 + i,
		}
	}
	return out
}

func newReadService(store *memory.Store, seeds int) (*CatalogReadService, *populate.Queue) {
	q := populate.New(store, nil)
	return &CatalogReadService{
		Repo:         store,
		Seed:         seed.New(seedMovies(seeds)),
		Queue:        q,
		Settings:     &SystemSettingsService{Repo: store},
		ListPageSize: 12,
	}, q
}

func runQueue(t *testing.T, q *populate.Queue) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func drain(t *testing.T, q *populate.Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestList_ColdStartAnswersFromSeed(t *testing.T) {
	svc, q := newReadService(memory.New(), 25)
	got, err := svc.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(got.Items) != 12 || got.TotalPages != 3 || got.Page != 1 {
		t.Fatalf("items=%d totalPages=%d page=%d want 12/3/1", len(got.Items), got.TotalPages, got.Page)
	}
	if got.Source != SourceSeed {
		t.Fatalf("source=%s want seed", got.Source)
	}
	for _, m := range got.Items {
		if m.Stored() {
			t.Fatalf("seed answer carries id %d", m.ID)
		}
	}
	if st := q.Stats(); st.Enqueued != 25 {
		t.Fatalf("enqueued=%d want 25", st.Enqueued)
	}

	// A second request while the first batch is still pending enqueues nothing.
	if _, err := svc.List(context.Background(), 2); err != nil {
		t.Fatalf("err=%v", err)
	}
	if st := q.Stats(); st.Enqueued != 25 {
		t.Fatalf("enqueued=%d want 25 after second request", st.Enqueued)
	}
}

func TestList_PageBounds(t *testing.T) {
	svc, _ := newReadService(memory.New(), 25)
	ctx := context.Background()

	beyond, err := svc.List(ctx, 4)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(beyond.Items) != 0 || beyond.TotalPages != 3 {
		t.Fatalf("beyond: items=%d totalPages=%d want 0/3", len(beyond.Items), beyond.TotalPages)
	}
	if beyond.Items == nil {
		t.Fatalf("beyond: items is nil, want empty slice")
	}

	last, _ := svc.List(ctx, 3)
	if len(last.Items) != 1 || last.Items[0].Name != "Seed Movie 25" {
		t.Fatalf("last page=%v", last.Items)
	}

	zero, _ := svc.List(ctx, 0)
	if zero.Page != 1 || zero.Items[0].Name != "Seed Movie 01" {
		t.Fatalf("page 0: page=%d first=%s", zero.Page, zero.Items[0].Name)
	}
}

func TestList_SwitchesToStoreAfterPopulation(t *testing.T) {
	store := memory.New()
	svc, q := newReadService(store, 25)
	runQueue(t, q)
	ctx := context.Background()

	first, err := svc.List(ctx, 1)
	if err != nil || first.Source != SourceSeed {
		t.Fatalf("first: source=%s err=%v", first.Source, err)
	}
	drain(t, q)

	n, _ := store.CountMovies(ctx)
	if n != 25 {
		t.Fatalf("count=%d want 25", n)
	}
	again, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if again.Source != SourceStore || len(again.Items) != 12 || again.TotalPages != 3 {
		t.Fatalf("store page: source=%s items=%d totalPages=%d", again.Source, len(again.Items), again.TotalPages)
	}
	for i, m := range again.Items {
		if !m.Stored() {
			t.Fatalf("items[%d] has no id", i)
		}
		if m.Name != first.Items[i].Name {
			t.Fatalf("items[%d]=%s want %s", i, m.Name, first.Items[i].Name)
		}
	}

	// Once populated, reads never enqueue again.
	if st := q.Stats(); st.Enqueued != 25 || st.Inserted != 25 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestList_ColdStartSwitchOff(t *testing.T) {
	store := memory.New()
	svc, q := newReadService(store, 5)
	if err := svc.Settings.SetEnabled(context.Background(), FeatureColdStartPopulation, false); err != nil {
		t.Fatalf("err=%v", err)
	}
	got, err := svc.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.Source != SourceSeed || len(got.Items) != 5 {
		t.Fatalf("source=%s items=%d", got.Source, len(got.Items))
	}
	if st := q.Stats(); st.Enqueued != 0 {
		t.Fatalf("enqueued=%d want 0", st.Enqueued)
	}
}

func TestList_EmptySeed(t *testing.T) {
	svc, q := newReadService(memory.New(), 0)
	got, err := svc.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(got.Items) != 0 || got.TotalPages != 0 {
		t.Fatalf("items=%d totalPages=%d", len(got.Items), got.TotalPages)
	}
	if st := q.Stats(); st.Enqueued != 0 {
		t.Fatalf("enqueued=%d want 0", st.Enqueued)
	}
}

type brokenStore struct {
	*memory.Store
}

func (brokenStore) CountMovies(context.Context) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestList_StoreErrorIsReturned(t *testing.T) {
	svc, q := newReadService(memory.New(), 5)
	svc.Repo = brokenStore{memory.New()}
	if _, err := svc.List(context.Background(), 1); err == nil {
		t.Fatalf("expected error")
	}
	if st := q.Stats(); st.Enqueued != 0 {
		t.Fatalf("enqueued=%d want 0 on store error", st.Enqueued)
	}
}

func TestSearch_StoreOnly(t *testing.T) {
	store := memory.New()
	svc, _ := newReadService(store, 5)
	ctx := context.Background()

	got, err := svc.Search(ctx, "seed movie")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("search on empty store=%v want []", got)
	}

	for _, m := range seedMovies(3) {
		m := m
		_ = store.InsertMovie(ctx, &m)
	}
	got, _ = svc.Search(ctx, "MOVIE 02")
	if len(got) != 1 || got[0].Name != "Seed Movie 02" {
		t.Fatalf("search=%v", got)
	}
	all, _ := svc.Search(ctx, "  ")
	if len(all) != 3 {
		t.Fatalf("empty query returned %d want 3", len(all))
	}
}

func TestSorted(t *testing.T) {
	store := memory.New()
	svc, _ := newReadService(store, 0)
	svc.SortedPageSize = 10
	ctx := context.Background()

	empty, err := svc.Sorted(ctx, SortQuery{SortBy: "rating"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(empty.Items) != 0 || empty.TotalPages != 0 || empty.Source != SourceStore {
		t.Fatalf("empty store: %+v", empty)
	}

	for _, m := range seedMovies(12) {
		m := m
		if err := store.InsertMovie(ctx, &m); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	byDuration, _ := svc.Sorted(ctx, SortQuery{SortBy: "duration", Order: "desc"})
	if len(byDuration.Items) != 10 || byDuration.TotalPages != 2 {
		t.Fatalf("items=%d totalPages=%d want 10/2", len(byDuration.Items), byDuration.TotalPages)
	}
	if byDuration.Items[0].Duration != 101 {
		t.Fatalf("first duration=%d want 101", byDuration.Items[0].Duration)
	}

	byRelease, _ := svc.Sorted(ctx, SortQuery{SortBy: "releaseDate", Order: "ASC", Page: 2})
	if len(byRelease.Items) != 2 || byRelease.Items[0].Name != "Seed Movie 11" {
		t.Fatalf("release page 2=%v", byRelease.Items)
	}

	// Unknown field: newest first regardless of order.
	fallback, err := svc.Sorted(ctx, SortQuery{SortBy: "popularity", Order: "asc"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if fallback.Items[0].Name != "Seed Movie 12" || fallback.Items[9].Name != "Seed Movie 03" {
		t.Fatalf("fallback order first=%s last=%s", fallback.Items[0].Name, fallback.Items[9].Name)
	}
}

func TestSortColumn(t *testing.T) {
	tests := map[string]string{
		"rating":       "rating",
		"RATING":       "rating",
		"releaseDate":  "release_date",
		"release_date": "release_date",
		"duration":     "duration",
		"name":         "",
		"":             "",
	}
	for in, want := range tests {
		if got := SortColumn(in); got != want {
			t.Fatalf("SortColumn(%q)=%q want %q", in, got, want)
		}
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		size  int
		want  int
	}{
		{0, 12, 0},
		{1, 12, 1},
		{12, 12, 1},
		{13, 12, 2},
		{25, 12, 3},
	}
	for _, tt := range tests {
		if got := totalPages(tt.total, tt.size); got != tt.want {
			t.Fatalf("totalPages(%d,%d)=%d want %d", tt.total, tt.size, got, tt.want)
		}
	}
}
