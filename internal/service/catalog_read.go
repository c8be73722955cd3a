package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"moviecatalog/internal/metrics"
	"moviecatalog/internal/models"
	"moviecatalog/internal/populate"
	"moviecatalog/internal/repository"
	"moviecatalog/internal/seed"
)

const (
	SourceSeed  = "seed"
	SourceStore = "store"

	defaultListPageSize   = 12
	defaultSortedPageSize = 10
)

// Populator receives seed records when the store is found empty.
type Populator interface {
	EnqueueAll(items []models.Movie) int
	Stats() populate.Stats
}

// MoviePage is one page of a list or sorted read. Source tells which side
// answered; seed items never carry an id.
type MoviePage struct {
	Items      []models.Movie `json:"items"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
	Source     string         `json:"source"`
}

type SortQuery struct {
	SortBy string
	Order  string
	Page   int
}

type CatalogReadService struct {
	Repo     repository.MovieRepository
	Seed     *seed.Source
	Queue    Populator
	Settings *SystemSettingsService
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	ListPageSize   int
	SortedPageSize int
}

// List answers from the store once it holds anything. While the store is
// empty it hands every seed record to the populator and answers from the
// seed.
func (s *CatalogReadService) List(ctx context.Context, page int) (MoviePage, error) {
	page = normalizePage(page)
	size := pageSize(s.ListPageSize, defaultListPageSize)

	total, err := s.Repo.CountMovies(ctx)
	if err != nil {
		return MoviePage{}, fmt.Errorf("count movies: %w", err)
	}
	if total == 0 {
		s.triggerPopulation(ctx)
		s.Metrics.ObserveRead(SourceSeed)
		return MoviePage{
			Items:      s.Seed.Page(page, size),
			Page:       page,
			TotalPages: totalPages(int64(s.Seed.Len()), size),
			Source:     SourceSeed,
		}, nil
	}

	items, err := s.Repo.ListMovies(ctx, repository.ListMoviesParams{
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		return MoviePage{}, fmt.Errorf("list movies: %w", err)
	}
	s.Metrics.ObserveRead(SourceStore)
	return MoviePage{
		Items:      nonNil(items),
		Page:       page,
		TotalPages: totalPages(total, size),
		Source:     SourceStore,
	}, nil
}

// Sorted reads the store only; an empty store yields an empty page.
func (s *CatalogReadService) Sorted(ctx context.Context, q SortQuery) (MoviePage, error) {
	page := normalizePage(q.Page)
	size := pageSize(s.SortedPageSize, defaultSortedPageSize)

	total, err := s.Repo.CountMovies(ctx)
	if err != nil {
		return MoviePage{}, fmt.Errorf("count movies: %w", err)
	}
	column, asc := SortColumn(q.SortBy), !strings.EqualFold(strings.TrimSpace(q.Order), "desc")
	if column == "" {
		column, asc = repository.OrderByCreatedAt, false
	}
	items, err := s.Repo.ListMovies(ctx, repository.ListMoviesParams{
		Limit:   size,
		Offset:  (page - 1) * size,
		OrderBy: column,
		Asc:     asc,
	})
	if err != nil {
		return MoviePage{}, fmt.Errorf("list sorted movies: %w", err)
	}
	return MoviePage{
		Items:      nonNil(items),
		Page:       page,
		TotalPages: totalPages(total, size),
		Source:     SourceStore,
	}, nil
}

// Search matches name or description, case-insensitively, against the
// store only. An empty query returns every stored movie.
func (s *CatalogReadService) Search(ctx context.Context, q string) ([]models.Movie, error) {
	items, err := s.Repo.ListMovies(ctx, repository.ListMoviesParams{
		Keyword: strings.TrimSpace(q),
	})
	if err != nil {
		return nil, fmt.Errorf("search movies: %w", err)
	}
	return nonNil(items), nil
}

// SortColumn maps a caller-facing sort field to a store column, or "" when
// the field is not sortable.
func SortColumn(sortBy string) string {
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case "rating":
		return repository.OrderByRating
	case "releasedate", "release_date":
		return repository.OrderByReleaseDate
	case "duration":
		return repository.OrderByDuration
	default:
		return ""
	}
}

// triggerPopulation skips the enqueue while an earlier batch is still
// draining. Duplicates would be skipped by the worker anyway.
func (s *CatalogReadService) triggerPopulation(ctx context.Context) {
	if s.Queue == nil || s.Seed.Len() == 0 {
		return
	}
	if !s.Settings.IsEnabled(ctx, FeatureColdStartPopulation, true) {
		return
	}
	if st := s.Queue.Stats(); st.Pending > 0 || st.Busy {
		return
	}
	n := s.Queue.EnqueueAll(s.Seed.All())
	if s.Logger != nil {
		s.Logger.Info("store empty, population enqueued", zap.Int("records", n))
	}
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func pageSize(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func totalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

func nonNil(items []models.Movie) []models.Movie {
	if items == nil {
		return []models.Movie{}
	}
	return items
}
