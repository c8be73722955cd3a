package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"moviecatalog/internal/models"
	"moviecatalog/internal/populate"
	"moviecatalog/internal/repository"
	"moviecatalog/internal/seed"
	"moviecatalog/internal/service"
)

const (
	defaultPassword = "password123"
	fallbackCount   = 20
)

type env struct {
	Repo        repository.Repository
	Seed        *seed.Source
	Logger      *zap.Logger
	TaskTimeout time.Duration
	// PasswordCost overrides the bcrypt cost; zero means the default.
	PasswordCost int
}

var defaultUsers = []struct {
	input service.RegisterInput
	role  string
}{
	{service.RegisterInput{Name: "Admin User", Email: "admin@example.com", Password: defaultPassword}, models.RoleAdmin},
	{service.RegisterInput{Name: "Simple User", Email: "user@example.com", Password: defaultPassword}, models.RoleUser},
}

// importData wipes the store, recreates the default accounts and pushes
// the seed through the population queue. An empty seed is replaced by
// placeholder movies.
func importData(ctx context.Context, e *env) error {
	if err := destroyData(ctx, e); err != nil {
		return err
	}

	users := &service.AuthService{Users: e.Repo, Logger: e.Logger, Cost: e.PasswordCost}
	for _, u := range defaultUsers {
		if _, err := users.CreateUser(ctx, u.input, u.role); err != nil {
			return fmt.Errorf("create %s: %w", u.input.Email, err)
		}
	}

	items := e.Seed.All()
	if len(items) == 0 {
		e.Logger.Warn("seed is empty, inserting fallback movies", zap.Int("count", fallbackCount))
		items = seed.Fallback(fallbackCount)
	}

	queue := populate.New(e.Repo, e.Logger, populate.WithTaskTimeout(e.TaskTimeout))
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- queue.Run(runCtx) }()

	queue.EnqueueAll(items)
	waitErr := queue.Wait(ctx)
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if waitErr != nil {
		return fmt.Errorf("wait for population: %w", waitErr)
	}

	st := queue.Stats()
	e.Logger.Info("seeded users and movies",
		zap.Int("users", len(defaultUsers)),
		zap.Uint64("inserted", st.Inserted),
		zap.Uint64("skipped", st.Skipped),
		zap.Uint64("failed", st.Failed),
	)
	if st.Failed > 0 {
		return fmt.Errorf("%d movies failed to insert", st.Failed)
	}
	return nil
}

func destroyData(ctx context.Context, e *env) error {
	movies, err := e.Repo.DeleteAllMovies(ctx)
	if err != nil {
		return fmt.Errorf("delete movies: %w", err)
	}
	users, err := e.Repo.DeleteAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("delete users: %w", err)
	}
	e.Logger.Info("data destroyed", zap.Int64("movies", movies), zap.Int64("users", users))
	return nil
}
