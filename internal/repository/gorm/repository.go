package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moviecatalog/internal/models"
	"moviecatalog/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Repository = (*Store)(nil)

// --- movies -----------------------------------------------------------------

func (s *Store) CountMovies(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Movie{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListMovies(ctx context.Context, params repository.ListMoviesParams) ([]models.Movie, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Movie
	if err := s.listMoviesQuery(ctx, params).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) listMoviesQuery(ctx context.Context, params repository.ListMoviesParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Movie{})
	if kw := strings.TrimSpace(params.Keyword); kw != "" {
		pattern := "%" + escapeLike(strings.ToLower(kw)) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	query = applyOrder(query, params.OrderBy, params.Asc)
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	if offset := normalizeOffset(params.Offset); offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func (s *Store) GetMovieByID(ctx context.Context, id uint64) (*models.Movie, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if id == 0 {
		return nil, nil
	}
	var item models.Movie
	err := s.db.WithContext(ctx).Model(&models.Movie{}).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) FindMovieByName(ctx context.Context, name string) (*models.Movie, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if name == "" {
		return nil, nil
	}
	var item models.Movie
	err := s.db.WithContext(ctx).Model(&models.Movie{}).Where("name = ?", name).Order("id asc").First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertMovie(ctx context.Context, item *models.Movie) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateMovie(ctx context.Context, item *models.Movie) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == 0 {
		return errors.New("update movie: missing id")
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) DeleteMovie(ctx context.Context, id uint64) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	if id == 0 {
		return false, nil
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Movie{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) DeleteAllMovies(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Movie{})
	return res.RowsAffected, res.Error
}

// --- users ------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, item *models.User) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Email = normalizeEmail(item.Email)
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if id == 0 {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) DeleteAllUsers(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{})
	return res.RowsAffected, res.Error
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		pattern := escapeLike(strings.TrimSpace(*params.Prefix)) + "%"
		query = query.Where("key LIKE ?", pattern)
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Order("key asc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

// applyOrder sorts by a whitelisted movie column with id as the tie-break.
// Unknown columns fall back to newest first.
func applyOrder(query *gorm.DB, orderBy string, asc bool) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	direction := "desc"
	if asc {
		direction = "asc"
	}
	switch column {
	case "":
		return query.Order("id asc")
	case repository.OrderByRating, repository.OrderByReleaseDate, repository.OrderByDuration:
		return query.Order(column + " " + direction).Order("id asc")
	case repository.OrderByCreatedAt:
		return query.Order("created_at " + direction).Order("id " + direction)
	default:
		return query.Order("created_at desc").Order("id desc")
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
