package main

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"moviecatalog/internal/models"
	"moviecatalog/internal/repository/memory"
	"moviecatalog/internal/seed"
)

func testEnv(items []models.Movie) *env {
	return &env{
		Repo:         memory.New(),
		Seed:         seed.New(items),
		Logger:       zap.NewNop(),
		PasswordCost: bcrypt.MinCost,
	}
}

func TestImportData(t *testing.T) {
	e := testEnv([]models.Movie{
		{Name: "Alien", Description: "d", Duration: 117},
		{Name: "Heat", Description: "d", Duration: 170},
		{Name: "Alien", Description: "duplicate name", Duration: 1},
	})
	ctx := context.Background()
	if err := importData(ctx, e); err != nil {
		t.Fatalf("err=%v", err)
	}
	n, _ := e.Repo.CountMovies(ctx)
	if n != 2 {
		t.Fatalf("movies=%d want 2", n)
	}
	admin, _ := e.Repo.GetUserByEmail(ctx, "admin@example.com")
	if admin == nil || !admin.IsAdmin() {
		t.Fatalf("admin=%+v", admin)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(defaultPassword)); err != nil {
		t.Fatalf("admin password: %v", err)
	}

	// Running again starts from a clean store.
	if err := importData(ctx, e); err != nil {
		t.Fatalf("second import: %v", err)
	}
	if n, _ := e.Repo.CountMovies(ctx); n != 2 {
		t.Fatalf("movies after reimport=%d want 2", n)
	}
}

func TestImportFallback(t *testing.T) {
	e := testEnv(nil)
	ctx := context.Background()
	if err := importData(ctx, e); err != nil {
		t.Fatalf("err=%v", err)
	}
	if n, _ := e.Repo.CountMovies(ctx); n != fallbackCount {
		t.Fatalf("movies=%d want %d", n, fallbackCount)
	}
}

func TestDestroyData(t *testing.T) {
	e := testEnv([]models.Movie{{Name: "Alien", Description: "d", Duration: 117}})
	ctx := context.Background()
	if err := importData(ctx, e); err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := destroyData(ctx, e); err != nil {
		t.Fatalf("err=%v", err)
	}
	if n, _ := e.Repo.CountMovies(ctx); n != 0 {
		t.Fatalf("movies=%d want 0", n)
	}
	if u, _ := e.Repo.GetUserByEmail(ctx, "user@example.com"); u != nil {
		t.Fatalf("user survived destroy")
	}
}
