package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dailyprompt/internal/app"
	"dailyprompt/internal/config"
	"dailyprompt/internal/handlers"
	"dailyprompt/internal/logging"
	"dailyprompt/internal/observability"
	"dailyprompt/internal/security"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startup := handlers.NewStartupStatus(handlers.StepDatabase, handlers.StepMigrations, handlers.StepCatalog, handlers.StepServices)

	startup.SetCurrentStep(handlers.StepDatabase)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()
	startup.CompleteStep(handlers.StepDatabase)

	// Serve health and readiness while migrations and seeding run
	var opts []handlers.HandlerOption
	if cfg.RateLimit > 0 {
		rl := security.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
		defer rl.Stop()
		opts = append(opts, handlers.WithRateLimiter(rl))
	}
	h := handlers.NewHandler(a.Prompts, startup, logger.Named("http"), opts...)
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Router(observability.MetricsHandler(a.Registry)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	startup.SetCurrentStep(handlers.StepMigrations)
	if _, err := a.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	startup.CompleteStep(handlers.StepMigrations)

	startup.SetCurrentStep(handlers.StepCatalog)
	if path := cfg.SeedCatalogPath; path != "" {
		if _, err := a.Seeder.SeedFile(ctx, path); err != nil {
			logger.Warn("failed to seed catalog", zap.String("path", path), zap.Error(err))
		}
	}
	startup.CompleteStep(handlers.StepCatalog)
	startup.CompleteStep(handlers.StepServices)
	startup.MarkReady()
	logger.Info("server ready")

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
