// Package bootstrap builds the pieces shared by the server and the seeder:
// configuration, the selected record store and the seed source.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"moviecatalog/internal/config"
	"moviecatalog/internal/db"
	"moviecatalog/internal/repository"
	gormrepository "moviecatalog/internal/repository/gorm"
	"moviecatalog/internal/repository/memory"
	"moviecatalog/internal/seed"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	dbConnectTimeout = 5 * time.Second
)

// LoadConfig reads CATALOG_CONFIG (default config/config.yaml) unless
// CATALOG_ENV_ONLY is set.
func LoadConfig() (config.Config, error) {
	cfgPath := os.Getenv("CATALOG_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if raw := os.Getenv("CATALOG_ENV_ONLY"); raw != "" {
		envOnly = strings.EqualFold(raw, "true") || raw == "1"
	}
	return config.Load(cfgPath, envOnly)
}

// Store is an opened record store. DB is nil for the memory driver.
type Store struct {
	Repo   repository.Repository
	DB     *db.DB
	Driver string
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.DB.Close()
}

func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch driver {
	case DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return &Store{Repo: memory.New(), Driver: driver}, nil
	case DriverPostgres, "":
		conn, err := db.Open(ctx, cfg.DB, dbConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.AutoMigrate(conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
		return &Store{Repo: gormrepository.New(conn.Gorm), DB: conn, Driver: DriverPostgres}, nil
	default:
		return nil, fmt.Errorf("unknown store.driver %q", cfg.Store.Driver)
	}
}

// LoadSeed never fails the process: an unreadable seed file is logged and
// treated as empty.
func LoadSeed(path string, logger *zap.Logger) *seed.Source {
	src, err := seed.Load(path)
	if err != nil {
		logger.Warn("seed file unusable, starting with an empty seed", zap.String("path", path), zap.Error(err))
		return seed.New(nil)
	}
	if src.Len() == 0 {
		logger.Warn("seed file missing or empty", zap.String("path", path))
	} else {
		logger.Info("seed loaded", zap.String("path", path), zap.Int("records", src.Len()))
	}
	return src
}
