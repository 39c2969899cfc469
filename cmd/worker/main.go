// Package main is the entrypoint for the WasteWise background worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wastewise/wastewise/internal/cache"
	"github.com/wastewise/wastewise/internal/config"
	"github.com/wastewise/wastewise/internal/engine"
	"github.com/wastewise/wastewise/internal/executor"
	"github.com/wastewise/wastewise/internal/extract"
	"github.com/wastewise/wastewise/internal/report"
	"github.com/wastewise/wastewise/internal/skill"
	"github.com/wastewise/wastewise/internal/store"
	"github.com/wastewise/wastewise/internal/worker"
	"github.com/wastewise/wastewise/pkg/models"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
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

	// 2. Verify the benchmark rule table before touching any job
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

	// 6. Create store, extractor, and report builder
	pgStore := store.NewPostgresStore(pool)

	extractor, err := extract.NewExtractor(cfg.Extraction)
	if err != nil {
		return fmt.Errorf("create extractor: %w", err)
	}
	slog.Info("extractor initialized", "provider", extractor.Name())

	reports := report.NewBuilder(cfg.Report)

	// 7. Register skills and fail closed if any dispatchable job type has
	// no skill behind it
	registry := skill.NewRegistry()
	if err := registry.Register(skill.NewCompleteAnalysisSkill(pgStore, extractor, reports)); err != nil {
		return fmt.Errorf("register skills: %w", err)
	}
	if err := registry.Register(skill.NewCompactorOptimizationSkill()); err != nil {
		return fmt.Errorf("register skills: %w", err)
	}
	if err := registry.ValidateComplete(
		models.JobTypeCompleteAnalysis,
		models.JobTypeCompactorOptimization,
	); err != nil {
		return fmt.Errorf("validate skill registry: %w", err)
	}
	slog.Info("skills registered", "skills", registry.Names())

	// 8. Run the polling loop until interrupted
	exec := executor.New(pgStore, registry, executor.DefaultUserResolver{Store: pgStore}, slog.Default())
	processor := worker.NewProcessor(pgStore, redisCache, exec, cfg.Worker.MaxAttempts, slog.Default())
	w := worker.New(pgStore, processor, cfg.Worker, slog.Default())

	return w.Run(ctx)
}
