package repository

import (
	"context"

	"moviecatalog/internal/models"
)

// Sortable movie columns. Any other OrderBy value falls back to creation
// time descending.
const (
	OrderByRating      = "rating"
	OrderByReleaseDate = "release_date"
	OrderByDuration    = "duration"
	OrderByCreatedAt   = "created_at"
)

// MovieRepository is the record store used by the catalog services and the
// population queue. Lookups return nil, nil when nothing matches.
type MovieRepository interface {
	CountMovies(ctx context.Context) (int64, error)
	ListMovies(ctx context.Context, params ListMoviesParams) ([]models.Movie, error)
	GetMovieByID(ctx context.Context, id uint64) (*models.Movie, error)
	FindMovieByName(ctx context.Context, name string) (*models.Movie, error)
	InsertMovie(ctx context.Context, item *models.Movie) error
	UpdateMovie(ctx context.Context, item *models.Movie) error
	DeleteMovie(ctx context.Context, id uint64) (bool, error)
	DeleteAllMovies(ctx context.Context) (int64, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, item *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	DeleteAllUsers(ctx context.Context) (int64, error)
}

type SettingsRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}

// Repository is implemented by both the gorm and the in-memory store.
type Repository interface {
	MovieRepository
	UserRepository
	SettingsRepository
}

// ListMoviesParams selects a window of movies. Limit <= 0 returns every
// match. Keyword filters name OR description, case-insensitively.
type ListMoviesParams struct {
	Limit   int
	Offset  int
	Keyword string
	OrderBy string
	Asc     bool
}

type ListSystemSettingsParams struct {
	Limit  int
	Offset int
	Prefix *string
}
