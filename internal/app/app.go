// Package app wires configuration into a running curation service: store, ledger,
// annotator chain, metrics and the service itself.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/variant-curation-server/internal/annotation"
	"github.com/variant-curation-server/internal/database"
	"github.com/variant-curation-server/internal/domain"
	"github.com/variant-curation-server/internal/ledger"
	"github.com/variant-curation-server/internal/metrics"
	"github.com/variant-curation-server/internal/normalize"
	"github.com/variant-curation-server/internal/repository"
	"github.com/variant-curation-server/internal/service"
)

// App holds the wired components and the resources to release on shutdown.
type App struct {
	Config   domain.ConfigManager
	Logger   *logrus.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Store    domain.AggregateStore
	Ledger   ledger.Ledger
	Service  *service.CurationService

	// HealthChecks probe optional dependencies, keyed by name.
	HealthChecks map[string]func(ctx context.Context) error

	closers []func() error
}

// New builds the application from the loaded configuration. On error every resource opened so
// far is released.
func New(ctx context.Context, cfg domain.ConfigManager, logger *logrus.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  metrics.New(registry),

		HealthChecks: make(map[string]func(ctx context.Context) error),
	}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	annotator, err := a.buildAnnotator(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	curation := cfg.GetConfig().Curation
	opts := []service.Option{
		service.WithMetrics(a.Metrics),
		service.WithLogger(logger),
		service.WithRetry(curation.MaxUpdateRetries, curation.RetryBaseDelay),
		service.WithStrictAnnotation(cfg.GetAnnotationConfig().Strict),
	}
	if a.Ledger != nil {
		opts = append(opts, service.WithLedger(a.Ledger))
	}
	a.Service = service.NewCurationService(normalize.NewNormalizer(), annotator, a.Store, opts...)

	logger.WithFields(logrus.Fields{
		"store":      cfg.GetStoreConfig().Driver,
		"annotation": cfg.GetAnnotationConfig().Provider,
		"ledger":     a.Ledger != nil,
		"redis":      cfg.GetRedisConnectionString() != "",
		"production": cfg.IsProduction(),
	}).Info("Application initialized")

	return a, nil
}

// openStore selects the aggregate store and the matching ledger by driver.
func (a *App) openStore(ctx context.Context) error {
	store := a.Config.GetStoreConfig()
	ledgerEnabled := a.Config.GetConfig().Ledger.Enabled

	switch store.Driver {
	case domain.StoreDriverPostgres:
		dbConfig := database.ConfigFromDomain(*a.Config.GetDatabaseConfig())
		if store.RunMigrations {
			if err := database.Migrate(ctx, dbConfig.URL(), a.Logger); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		db, err := database.NewConnection(ctx, dbConfig, a.Logger)
		if err != nil {
			return err
		}
		a.onClose(func() error { db.Close(); return nil })
		a.Store = repository.NewPostgresStore(db.Pool, a.Logger)

		if ledgerEnabled {
			l, err := ledger.NewPostgresLedgerFromDSN(ctx, dbConfig.DSN())
			if err != nil {
				return fmt.Errorf("failed to open ledger: %w", err)
			}
			a.onClose(l.Close)
			a.Ledger = l
		}

	case domain.StoreDriverSQLite:
		sqliteStore, err := repository.NewSQLiteStore(store.SQLitePath, a.Logger)
		if err != nil {
			return err
		}
		a.onClose(sqliteStore.Close)
		a.Store = sqliteStore

		if ledgerEnabled {
			l, err := ledger.NewSQLiteLedger(sqliteStore.DB())
			if err != nil {
				return fmt.Errorf("failed to open ledger: %w", err)
			}
			a.Ledger = l
		}

	case domain.StoreDriverMemory:
		a.Store = repository.NewMemoryStore()
		if ledgerEnabled {
			a.Ledger = ledger.NewMemoryLedger()
		}

	default:
		return fmt.Errorf("invalid store driver: %s", store.Driver)
	}

	return nil
}

// buildAnnotator returns the configured provider behind the two-tier cache.
func (a *App) buildAnnotator(ctx context.Context) (domain.Annotator, error) {
	annotationConfig := a.Config.GetAnnotationConfig()
	cacheConfig := a.Config.GetCacheConfig()

	var provider domain.Annotator
	switch annotationConfig.Provider {
	case domain.AnnotationProviderEnsembl:
		ensembl := annotation.NewEnsemblAnnotator(*annotationConfig, a.Logger)
		a.HealthChecks["annotation"] = ensembl.Check
		provider = ensembl
	case domain.AnnotationProviderNone:
		provider = annotation.NoopAnnotator{}
	default:
		return nil, fmt.Errorf("invalid annotation provider: %s", annotationConfig.Provider)
	}

	var redisClient *redis.Client
	if a.Config.GetRedisConnectionString() != "" {
		client, err := annotation.NewRedisClient(ctx, *cacheConfig)
		if err != nil {
			a.Logger.WithError(err).Warn("Redis unavailable, annotation cache is process-local only")
		} else {
			redisClient = client
			a.onClose(client.Close)
		}
	}

	cached, err := annotation.NewCachedAnnotator(provider, *cacheConfig, redisClient, a.Metrics, a.Logger)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

// ErrLedgerDisabled is returned by ExportLedger when no ledger is configured.
var ErrLedgerDisabled = errors.New("submission ledger is disabled")

// ExportLedger writes every ledger record, oldest first, to a timestamped JSON file in dir and
// returns its path.
func (a *App) ExportLedger(ctx context.Context, dir string) (string, error) {
	if a.Ledger == nil {
		return "", ErrLedgerDisabled
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("submissions-%s.json", time.Now().UTC().Format("20060102T150405Z")))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := a.Ledger.ExportJSON(ctx, file); err != nil {
		return "", fmt.Errorf("failed to export ledger: %w", err)
	}
	if err := file.Sync(); err != nil {
		return "", fmt.Errorf("failed to flush export file: %w", err)
	}

	a.Logger.WithField("path", path).Info("Ledger exported")
	return path, nil
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
