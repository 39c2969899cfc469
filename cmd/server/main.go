// Package main is the entrypoint for the WasteWise API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wastewise/wastewise/internal/api"
	"github.com/wastewise/wastewise/internal/api/handler"
	mw "github.com/wastewise/wastewise/internal/api/middleware"
	"github.com/wastewise/wastewise/internal/cache"
	"github.com/wastewise/wastewise/internal/config"
	"github.com/wastewise/wastewise/internal/engine"
	"github.com/wastewise/wastewise/internal/executor"
	"github.com/wastewise/wastewise/internal/extract"
	"github.com/wastewise/wastewise/internal/report"
	"github.com/wastewise/wastewise/internal/skill"
	"github.com/wastewise/wastewise/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "extraction_provider", cfg.Extraction.Provider, "env", cfg.Server.Env)

	// 2. Verify the benchmark rule table before serving anything
	if err := engine.VerifyRuleTable(); err != nil {
		return fmt.Errorf("verify rule table: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 4. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 5. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 6. Create store and skills. The server never executes jobs, but the
	// create-analysis handler needs the skill plan for total_steps.
	pgStore := store.NewPostgresStore(pool)

	extractor, err := extract.NewExtractor(cfg.Extraction)
	if err != nil {
		return fmt.Errorf("create extractor: %w", err)
	}
	reports := report.NewBuilder(cfg.Report)

	registry := skill.NewRegistry()
	if err := registry.Register(skill.NewCompleteAnalysisSkill(pgStore, extractor, reports)); err != nil {
		return fmt.Errorf("register skills: %w", err)
	}
	if err := registry.Register(skill.NewCompactorOptimizationSkill()); err != nil {
		return fmt.Errorf("register skills: %w", err)
	}

	exec := executor.New(pgStore, registry, executor.DefaultUserResolver{Store: pgStore}, slog.Default())

	// 7. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 60)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler:         handler.NewHealthHandler(pgStore, redisCache),
		CreateAnalysisHandler: handler.NewCreateAnalysisHandler(pgStore, exec),
		PollJobHandler:        handler.NewPollJobHandler(pgStore, redisCache),
		CancelJobHandler:      handler.NewCancelJobHandler(pgStore, redisCache),
		CreateKeyHandler:      handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:       handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler:      handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
