// Package seed loads the static candidate records served while the store is
// still empty. A Source never changes after Load returns.
package seed

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moviecatalog/internal/models"
)

const defaultDuration = 120

type Source struct {
	items []models.Movie
}

// entry is one record of the seed file as produced by the offline scraper.
type entry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Poster      string          `json:"poster"`
	Rating      decimal.Decimal `json:"rating"`
	ReleaseDate string          `json:"releaseDate"`
	Year        int             `json:"year"`
	Duration    int             `json:"duration"`
}

// Load reads a JSON array of seed entries. A missing file yields an empty
// source, not an error.
func Load(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Source, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return New(nil), nil
	}
	var entries []entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	items := make([]models.Movie, 0, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		released, err := parseRelease(e.ReleaseDate, e.Year)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d (%s): %w", i, name, err)
		}
		duration := e.Duration
		if duration <= 0 {
			duration = defaultDuration
		}
		items = append(items, models.Movie{
			Name:        name,
			Description: strings.TrimSpace(e.Description),
			Poster:      strings.TrimSpace(e.Poster),
			Rating:      e.Rating,
			ReleaseDate: models.NewDate(released),
			Duration:    duration,
		})
	}
	return New(items), nil
}

// New wraps items in a Source. Identity and timestamps are stripped.
func New(items []models.Movie) *Source {
	out := make([]models.Movie, len(items))
	for i, m := range items {
		m.ID = 0
		m.CreatedAt = time.Time{}
		m.UpdatedAt = time.Time{}
		out[i] = m
	}
	return &Source{items: out}
}

func (s *Source) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// All returns a copy of every record in file order.
func (s *Source) All() []models.Movie {
	if s == nil {
		return nil
	}
	out := make([]models.Movie, len(s.items))
	copy(out, s.items)
	return out
}

// Page returns the 1-indexed page of the given size. Pages past the end
// are empty.
func (s *Source) Page(page, size int) []models.Movie {
	if s == nil || size <= 0 {
		return []models.Movie{}
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(s.items) {
		return []models.Movie{}
	}
	end := start + size
	if end > len(s.items) {
		end = len(s.items)
	}
	out := make([]models.Movie, end-start)
	copy(out, s.items[start:end])
	return out
}

// Fallback builds the placeholder catalog used when no scraped data exists.
func Fallback(n int) []models.Movie {
	today := models.NewDate(time.Now())
	out := make([]models.Movie, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, models.Movie{
			Name:        fmt.Sprintf("Fallback Movie #%d", i),
			Description: fmt.Sprintf("Description for movie #%d. Scraper failed.", i),
			Poster:      "https://placehold.co/300x450?text=No+Data",
			Rating:      decimal.RequireFromString("7.5"),
			ReleaseDate: today,
			Duration:    defaultDuration,
		})
	}
	return out
}

func parseRelease(value string, year int) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value != "" {
		for _, layout := range []string{time.DateOnly, time.RFC3339} {
			if t, err := time.Parse(layout, value); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid releaseDate %q", value)
	}
	if year <= 0 {
		year = 2000
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
}
