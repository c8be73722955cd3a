// Package memory is an in-process record store. Every operation locks the
// whole store, so single-document writes are atomic just like the SQL store.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"moviecatalog/internal/models"
	"moviecatalog/internal/repository"
)

var ErrDuplicateEmail = errors.New("memory store: duplicate email")

type Store struct {
	mu sync.RWMutex

	movies   map[uint64]models.Movie
	users    map[uint64]models.User
	settings map[string]models.SystemSetting

	nextMovieID   uint64
	nextUserID    uint64
	nextSettingID uint64

	now func() time.Time
}

func New() *Store {
	return &Store{
		movies:   map[uint64]models.Movie{},
		users:    map[uint64]models.User{},
		settings: map[string]models.SystemSetting{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.Repository = (*Store)(nil)

// --- movies -----------------------------------------------------------------

func (s *Store) CountMovies(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.movies)), nil
}

func (s *Store) ListMovies(_ context.Context, params repository.ListMoviesParams) ([]models.Movie, error) {
	s.mu.RLock()
	items := make([]models.Movie, 0, len(s.movies))
	kw := strings.ToLower(strings.TrimSpace(params.Keyword))
	for _, m := range s.movies {
		if kw != "" && !matchesKeyword(m, kw) {
			continue
		}
		items = append(items, m)
	}
	s.mu.RUnlock()

	sortMovies(items, params.OrderBy, params.Asc)

	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []models.Movie{}, nil
	}
	items = items[offset:]
	if params.Limit > 0 && params.Limit < len(items) {
		items = items[:params.Limit]
	}
	return items, nil
}

func (s *Store) GetMovieByID(_ context.Context, id uint64) (*models.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *Store) FindMovieByName(_ context.Context, name string) (*models.Movie, error) {
	if name == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.Movie
	for _, m := range s.movies {
		if m.Name != name {
			continue
		}
		if found == nil || m.ID < found.ID {
			m := m
			found = &m
		}
	}
	return found, nil
}

func (s *Store) InsertMovie(_ context.Context, item *models.Movie) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMovieID++
	now := s.now()
	item.ID = s.nextMovieID
	item.CreatedAt = now
	item.UpdatedAt = now
	s.movies[item.ID] = *item
	return nil
}

func (s *Store) UpdateMovie(_ context.Context, item *models.Movie) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.movies[item.ID]
	if !ok {
		return errors.New("memory store: movie not found")
	}
	item.CreatedAt = prev.CreatedAt
	item.UpdatedAt = s.now()
	s.movies[item.ID] = *item
	return nil
}

func (s *Store) DeleteMovie(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[id]; !ok {
		return false, nil
	}
	delete(s.movies, id)
	return true, nil
}

func (s *Store) DeleteAllMovies(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.movies))
	s.movies = map[uint64]models.Movie{}
	return n, nil
}

// --- users ------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, item *models.User) error {
	if item == nil {
		return nil
	}
	item.Email = strings.ToLower(strings.TrimSpace(item.Email))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == item.Email {
			return ErrDuplicateEmail
		}
	}
	s.nextUserID++
	now := s.now()
	item.ID = s.nextUserID
	item.CreatedAt = now
	item.UpdatedAt = now
	s.users[item.ID] = *item
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Store) GetUserByID(_ context.Context, id uint64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) DeleteAllUsers(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.users))
	s.users = map[uint64]models.User{}
	return n, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(_ context.Context, item *models.SystemSetting) error {
	if item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if prev, ok := s.settings[item.Key]; ok {
		item.ID = prev.ID
		item.CreatedAt = prev.CreatedAt
	} else {
		s.nextSettingID++
		item.ID = s.nextSettingID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
	}
	item.UpdatedAt = now
	s.settings[item.Key] = *item
	return nil
}

func (s *Store) GetSystemSettingByKey(_ context.Context, key string) (*models.SystemSetting, error) {
	key = strings.TrimSpace(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.settings[key]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(_ context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	prefix := ""
	if params.Prefix != nil {
		prefix = strings.TrimSpace(*params.Prefix)
	}
	s.mu.RLock()
	items := make([]models.SystemSetting, 0, len(s.settings))
	for key, item := range s.settings {
		if strings.HasPrefix(key, prefix) {
			items = append(items, item)
		}
	}
	s.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })

	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []models.SystemSetting{}, nil
	}
	items = items[offset:]
	if params.Limit > 0 && params.Limit < len(items) {
		items = items[:params.Limit]
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func matchesKeyword(m models.Movie, kw string) bool {
	return strings.Contains(strings.ToLower(m.Name), kw) ||
		strings.Contains(strings.ToLower(m.Description), kw)
}

// sortMovies mirrors the SQL store's ordering: whitelisted column then id
// ascending, natural order by id, newest first for anything else.
func sortMovies(items []models.Movie, orderBy string, asc bool) {
	byID := func(i, j int) bool { return items[i].ID < items[j].ID }

	var cmp func(a, b models.Movie) int
	switch strings.TrimSpace(orderBy) {
	case "":
		sort.Slice(items, byID)
		return
	case repository.OrderByRating:
		cmp = func(a, b models.Movie) int { return a.Rating.Cmp(b.Rating) }
	case repository.OrderByReleaseDate:
		cmp = func(a, b models.Movie) int { return a.ReleaseTime().Compare(b.ReleaseTime()) }
	case repository.OrderByDuration:
		cmp = func(a, b models.Movie) int { return compareInt(a.Duration, b.Duration) }
	case repository.OrderByCreatedAt:
		if asc {
			sort.Slice(items, func(i, j int) bool { return createdBefore(items[i], items[j]) })
			return
		}
		sort.Slice(items, func(i, j int) bool { return createdBefore(items[j], items[i]) })
		return
	default:
		sort.Slice(items, func(i, j int) bool { return createdBefore(items[j], items[i]) })
		return
	}

	sort.Slice(items, func(i, j int) bool {
		c := cmp(items[i], items[j])
		if c == 0 {
			return items[i].ID < items[j].ID
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
}

func createdBefore(a, b models.Movie) bool {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
