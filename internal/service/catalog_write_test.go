package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"moviecatalog/internal/repository/memory"
)

func ptr[T any](v T) *T { return &v }

func validInput() MovieInput {
	return MovieInput{
		Name:        ptr("Inception"),
		Description: ptr("A thief steals secrets through dreams"),
		Rating:      ptr(decimal.RequireFromString("8.8")),
		ReleaseDate: ptr("2010-07-16"),
		Duration:    ptr(148),
	}
}

func TestCreate_Valid(t *testing.T) {
	store := memory.New()
	svc := &CatalogWriteService{Repo: store}
	got, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.ID == 0 || got.Name != "Inception" || got.Rating.String() != "8.8" {
		t.Fatalf("movie=%+v", got)
	}
	if got.ReleaseTime().Year() != 2010 {
		t.Fatalf("release=%s", got.ReleaseTime())
	}
}

func TestCreate_ValidationBeforeStore(t *testing.T) {
	store := memory.New()
	svc := &CatalogWriteService{Repo: store}
	in := validInput()
	in.Description = nil
	in.Duration = ptr(0)
	in.ReleaseDate = ptr("16/07/2010")

	_, err := svc.Create(context.Background(), in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err=%v want ValidationError", err)
	}
	for _, field := range []string{"description", "duration", "releaseDate"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("fields=%v missing %s", verr.Fields, field)
		}
	}
	if n, _ := store.CountMovies(context.Background()); n != 0 {
		t.Fatalf("count=%d want 0", n)
	}
}

func TestCreate_RatingKeptAsGiven(t *testing.T) {
	svc := &CatalogWriteService{Repo: memory.New()}
	ctx := context.Background()
	for _, raw := range []string{"11", "-1", "8.85", "1000.25"} {
		in := validInput()
		name := "Rated " + raw
		in.Name = &name
		in.Rating = ptr(decimal.RequireFromString(raw))
		got, err := svc.Create(ctx, in)
		if err != nil {
			t.Fatalf("rating %s: err=%v", raw, err)
		}
		if got.Rating.String() != raw {
			t.Fatalf("rating=%s want %s", got.Rating, raw)
		}
	}
}

func TestUpdate_MergesSuppliedFields(t *testing.T) {
	store := memory.New()
	svc := &CatalogWriteService{Repo: store}
	ctx := context.Background()
	created, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	got, err := svc.Update(ctx, created.ID, MovieInput{Duration: ptr(150)})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.Duration != 150 || got.Name != "Inception" || got.Rating.String() != "8.8" {
		t.Fatalf("merged=%+v", got)
	}
	stored, _ := store.GetMovieByID(ctx, created.ID)
	if stored.Duration != 150 || stored.Description != created.Description {
		t.Fatalf("stored=%+v", stored)
	}

	if _, err := svc.Update(ctx, created.ID, MovieInput{Name: ptr("  ")}); err == nil {
		t.Fatalf("expected validation error for empty name")
	}
	if _, err := svc.Update(ctx, 999, MovieInput{Duration: ptr(1)}); !errors.Is(err, ErrMovieNotFound) {
		t.Fatalf("err=%v want ErrMovieNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	store := memory.New()
	svc := &CatalogWriteService{Repo: store}
	ctx := context.Background()
	created, _ := svc.Create(ctx, validInput())

	removed, err := svc.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if removed.ID != created.ID {
		t.Fatalf("removed id=%d want %d", removed.ID, created.ID)
	}
	if _, err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrMovieNotFound) {
		t.Fatalf("second delete err=%v want ErrMovieNotFound", err)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, ErrMovieNotFound) {
		t.Fatalf("get err=%v want ErrMovieNotFound", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"name": "is required", "duration": "is required"}}
	if got := err.Error(); got != "invalid movie: duration: is required; name: is required" {
		t.Fatalf("msg=%q", got)
	}
}
