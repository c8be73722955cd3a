package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"moviecatalog/internal/bootstrap"
	"moviecatalog/internal/logger"
)

var (
	destroyFlag bool
	seedPath    string
)

var rootCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Load or wipe catalog data",
	Long: `Resets the catalog store.

Without arguments the seeder imports: it deletes every movie and user,
creates the default admin and user accounts, and inserts the seed file.
Pass -d to only delete.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if destroyFlag {
			return run(cmd.Context(), destroyData)
		}
		return run(cmd.Context(), importData)
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Wipe the store, create default users and insert the seed movies",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), importData)
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Delete every movie and user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), destroyData)
	},
}

func init() {
	rootCmd.Flags().BoolVarP(&destroyFlag, "destroy", "d", false, "delete all data instead of importing")
	rootCmd.PersistentFlags().StringVar(&seedPath, "seed", "", "seed file (default catalog.seed_path)")
	rootCmd.AddCommand(importCmd, destroyCmd)
}

type action func(ctx context.Context, env *env) error

func run(ctx context.Context, fn action) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	path := seedPath
	if path == "" {
		path = cfg.Catalog.SeedPath
	}
	e := &env{
		Repo:        store.Repo,
		Seed:        bootstrap.LoadSeed(path, log),
		Logger:      log,
		TaskTimeout: cfg.Population.TaskTimeout,
	}
	if err := fn(ctx, e); err != nil {
		log.Error("seeder failed", zap.Error(err))
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
