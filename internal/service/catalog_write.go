package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"moviecatalog/internal/models"
	"moviecatalog/internal/repository"
)

var ErrMovieNotFound = errors.New("movie not found")

const maxNameLength = 300

// MovieInput carries client-supplied fields. Nil fields are "not supplied":
// required on create, left untouched on update.
type MovieInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Poster      *string          `json:"poster"`
	Rating      *decimal.Decimal `json:"rating" swaggertype:"number"`
	ReleaseDate *string          `json:"releaseDate" example:"2010-07-16"`
	Duration    *int             `json:"duration"`
}

// ValidationError maps field names to what is wrong with them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid movie: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

type CatalogWriteService struct {
	Repo   repository.MovieRepository
	Logger *zap.Logger
}

func (s *CatalogWriteService) Get(ctx context.Context, id uint64) (*models.Movie, error) {
	item, err := s.Repo.GetMovieByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	if item == nil {
		return nil, ErrMovieNotFound
	}
	return item, nil
}

// Create validates every required field before touching the store.
func (s *CatalogWriteService) Create(ctx context.Context, in MovieInput) (*models.Movie, error) {
	verr := &ValidationError{}
	for field, missing := range map[string]bool{
		"name":        in.Name == nil,
		"description": in.Description == nil,
		"rating":      in.Rating == nil,
		"releaseDate": in.ReleaseDate == nil,
		"duration":    in.Duration == nil,
	} {
		if missing {
			verr.add(field, "is required")
		}
	}
	item := &models.Movie{}
	in.apply(item, verr)
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	if err := s.Repo.InsertMovie(ctx, item); err != nil {
		return nil, fmt.Errorf("insert movie: %w", err)
	}
	s.log().Info("movie created", zap.Uint64("id", item.ID), zap.String("name", item.Name))
	return item, nil
}

// Update merges supplied fields over the stored record.
func (s *CatalogWriteService) Update(ctx context.Context, id uint64, in MovieInput) (*models.Movie, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	verr := &ValidationError{}
	in.apply(item, verr)
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	if err := s.Repo.UpdateMovie(ctx, item); err != nil {
		return nil, fmt.Errorf("update movie %d: %w", id, err)
	}
	s.log().Info("movie updated", zap.Uint64("id", item.ID))
	return item, nil
}

// Delete removes the movie and returns it as it was before removal.
func (s *CatalogWriteService) Delete(ctx context.Context, id uint64) (*models.Movie, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.Repo.DeleteMovie(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete movie %d: %w", id, err)
	}
	if !ok {
		return nil, ErrMovieNotFound
	}
	s.log().Info("movie deleted", zap.Uint64("id", id))
	return item, nil
}

func (s *CatalogWriteService) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// apply copies supplied fields onto item, recording invalid ones in verr.
func (in MovieInput) apply(item *models.Movie, verr *ValidationError) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		switch {
		case name == "":
			verr.add("name", "must not be empty")
		case len(name) > maxNameLength:
			verr.add("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
		default:
			item.Name = name
		}
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			verr.add("description", "must not be empty")
		} else {
			item.Description = desc
		}
	}
	if in.Poster != nil {
		item.Poster = strings.TrimSpace(*in.Poster)
	}
	if in.Rating != nil {
		item.Rating = *in.Rating
	}
	if in.ReleaseDate != nil {
		released, err := parseDate(*in.ReleaseDate)
		if err != nil {
			verr.add("releaseDate", "must be a date like 2006-01-02")
		} else {
			item.ReleaseDate = models.NewDate(released)
		}
	}
	if in.Duration != nil {
		if *in.Duration <= 0 {
			verr.add("duration", "must be a positive number of minutes")
		} else {
			item.Duration = *in.Duration
		}
	}
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}
