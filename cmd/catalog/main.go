package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"moviecatalog/internal/auth"
	"moviecatalog/internal/bootstrap"
	cronrunner "moviecatalog/internal/cron"
	"moviecatalog/internal/handler"
	"moviecatalog/internal/logger"
	"moviecatalog/internal/metrics"
	"moviecatalog/internal/populate"
	"moviecatalog/internal/service"

	_ "moviecatalog/docs"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store open failed", zap.Error(err))
	}
	defer store.Close()

	seedSource := bootstrap.LoadSeed(cfg.Catalog.SeedPath, logger)
	m := metrics.New()
	hub := populate.NewBroadcaster(cfg.Population.StreamBuffer)
	queue := populate.New(store.Repo, logger,
		populate.WithTaskTimeout(cfg.Population.TaskTimeout),
		populate.WithObserver(hub.Observe),
		populate.WithMetrics(m),
	)

	settingsSvc := &service.SystemSettingsService{Repo: store.Repo}
	if err := settingsSvc.EnsureDefaultSwitches(ctx); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	jwt := auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), TokenTTL: cfg.Auth.TokenTTL}
	if len(jwt.Secret) == 0 {
		if !strings.EqualFold(cfg.App.Env, "dev") {
			logger.Fatal("auth.jwt_secret is required outside dev")
		}
		jwt.Secret = randomSecret()
		logger.Warn("auth.jwt_secret not set; using a random secret, tokens will not survive a restart")
	}

	readSvc := &service.CatalogReadService{
		Repo:           store.Repo,
		Seed:           seedSource,
		Queue:          queue,
		Settings:       settingsSvc,
		Metrics:        m,
		Logger:         logger,
		ListPageSize:   cfg.Catalog.ListPageSize,
		SortedPageSize: cfg.Catalog.SortedPageSize,
	}
	writeSvc := &service.CatalogWriteService{Repo: store.Repo, Logger: logger}
	authSvc := &service.AuthService{Users: store.Repo, JWT: jwt, Logger: logger}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(handler.CORSMiddleware())
	engine.Use(handler.WriteAuditMiddleware(logger))

	healthHandler := &handler.HealthHandler{Driver: store.Driver, Queue: queue}
	if store.DB != nil {
		healthHandler.DB = store.DB.Gorm
	}
	healthHandler.Register(engine)
	handler.RegisterDocs(engine)

	movieHandler := &handler.MovieHandler{Read: readSvc, Write: writeSvc, JWT: jwt, Logger: logger}
	movieHandler.Register(engine)
	populationHandler := &handler.PopulationHandler{Queue: queue, Broadcaster: hub, JWT: jwt, Logger: logger}
	populationHandler.Register(engine)
	authHandler := &handler.AuthHandler{Service: authSvc, JWT: jwt, Logger: logger}
	authHandler.Register(engine)
	settingsHandler := &handler.SettingsHandler{Settings: settingsSvc, JWT: jwt}
	settingsHandler.Register(engine)

	engine.GET("/metrics", gin.WrapH(m.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add("population_stats", cfg.Cron.PopulationStats, func(ctx context.Context) {
			if !settingsSvc.IsEnabled(ctx, service.FeaturePopulationStats, true) {
				return
			}
			st := queue.Stats()
			if st.Enqueued == 0 {
				return
			}
			logger.Info("population stats",
				zap.Uint64("enqueued", st.Enqueued),
				zap.Uint64("inserted", st.Inserted),
				zap.Uint64("skipped", st.Skipped),
				zap.Uint64("failed", st.Failed),
				zap.Int("pending", st.Pending),
				zap.Uint64("stream_dropped", hub.Dropped()),
			)
		})
		if err != nil {
			logger.Warn("cron register population stats failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	go func() {
		if err := queue.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("population worker stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr), zap.String("store", store.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if st := queue.Stats(); st.Pending > 0 {
		logger.Warn("population tasks dropped at shutdown", zap.Int("pending", st.Pending))
	}
}

func randomSecret() []byte {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return []byte(hex.EncodeToString(b))
}
