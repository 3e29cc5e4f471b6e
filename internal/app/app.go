// Package app builds the prompt engine and its stores from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"dailyprompt/internal/config"
	"dailyprompt/internal/database"
	"dailyprompt/internal/memstore"
	"dailyprompt/internal/observability"
	"dailyprompt/internal/repository"
	"dailyprompt/internal/service"
)

// App holds the wired engine. Exactly one of DB and Memory is set.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	DB     *database.DB
	Memory *memstore.Store

	Prompts   *service.PromptService
	Scheduler *service.Scheduler
	Seeder    *service.CatalogSeeder
}

// New opens the configured store and wires the services on top of it.
// DATABASE_TYPE=memory keeps everything in process.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...service.Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	a.Metrics = observability.NewMetrics(cfg.MetricsNamespace, a.Registry)

	var (
		stores service.Stores
		runTx  service.TxRunner
	)
	if cfg.DatabaseType == "memory" {
		a.Memory = memstore.New()
		stores = memoryStores(a.Memory)
		runTx = memoryTx(a.Memory)
		logger.Info("using in-memory store")
	} else {
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to reach database: %w", err)
		}
		a.DB = db
		stores = sqlStores(db)
		runTx = sqlTx(repository.NewCatalogRepository(db))
		logger.Info("database connection established", zap.String("type", cfg.DatabaseType))
	}

	opts = append([]service.Option{service.WithMetrics(a.Metrics)}, opts...)
	a.Prompts = service.NewPromptService(stores, cfg, logger.Named("prompts"), opts...)
	a.Scheduler = service.NewScheduler(a.Prompts)
	a.Seeder = service.NewCatalogSeeder(runTx, logger.Named("seeder"))
	return a, nil
}

// Migrate applies pending migrations. It is a no-op for the in-memory store.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	if a.DB == nil {
		return nil, nil
	}
	applied, err := a.DB.RunMigrations(ctx, a.Config.MigrationsPath)
	if err != nil {
		return applied, err
	}
	a.Logger.Info("migrations completed", zap.Strings("applied", applied))
	return applied, nil
}

// Close releases the database connection
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return a.Memory.Close()
}

func sqlStores(db *database.DB) service.Stores {
	return service.Stores{
		Prompts:     repository.NewPromptRepository(db),
		Groups:      repository.NewGroupRepository(db),
		Assignments: repository.NewAssignmentRepository(db),
		Usage:       repository.NewUsageRepository(db),
		Queue:       repository.NewQueueRepository(db),
		Entries:     repository.NewEntryRepository(db),
	}
}

func memoryStores(s *memstore.Store) service.Stores {
	return service.Stores{
		Prompts:     s,
		Groups:      s,
		Assignments: s,
		Usage:       s,
		Queue:       s,
		Entries:     s,
	}
}

func sqlTx(catalog *repository.CatalogRepository) service.TxRunner {
	return func(ctx context.Context, fn func(w service.CatalogWriter) error) error {
		return catalog.WithinTx(ctx, func(tx *repository.CatalogTx) error {
			return fn(tx)
		})
	}
}

func memoryTx(s *memstore.Store) service.TxRunner {
	return func(ctx context.Context, fn func(w service.CatalogWriter) error) error {
		return s.WithinTx(ctx, func(tx *memstore.Store) error {
			return fn(tx)
		})
	}
}
