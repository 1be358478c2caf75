// Package bootstrap builds the shared runtime from a Config: the store for
// the selected driver, the source loader, the read cache, metrics and the
// syncer. Commands call App and close it on exit.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/cache"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/config"
	infraBQ "github.com/neezar-abd/Books-E-Commerce-sub001/internal/infra/bigquery"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/infra/postgres"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/infra/sqlite"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/metrics"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/pipeline"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/query"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/source"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Store    store.CategoryStore
	Loader   *source.Loader
	Cache    cache.Cache
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Syncer   *pipeline.Syncer
	Query    *query.Service

	closers []func() error
}

// New wires every component for cfg. The caller owns the returned App and
// must Close it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.FromContext(ctx)

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Store: st}
	app.closers = append(app.closers, st.Close)

	app.Cache = cache.Noop{}
	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			// The cache is an optimization; run without it.
			log.Warn().Err(err).Msg("Redis unavailable, category cache disabled")
		} else {
			app.Cache = rc
			app.closers = append(app.closers, rc.Close)
		}
	}

	app.Registry = metrics.NewRegistry()
	app.Metrics = metrics.New(app.Registry)
	app.Loader = NewLoader(cfg)
	app.Syncer = NewSyncer(cfg, st, app.Loader, app.Cache, app.Metrics)
	app.Query = query.NewService(st,
		query.WithCache(app.Cache),
		query.WithObserver(app.Metrics),
		query.WithDefaultLimit(cfg.Query.DefaultLimit),
	)

	log.Info().
		Str("driver", cfg.StoreDriver).
		Str("source", cfg.CategorySource).
		Bool("cache", cfg.Cache.RedisURL != "").
		Msg("Category runtime ready")
	return app, nil
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenStore connects to the backend selected by cfg.StoreDriver. SQLite is
// migrated in place; Postgres and BigQuery expect cmd/migrate to have run.
func OpenStore(ctx context.Context, cfg *config.Config) (store.CategoryStore, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		st, err := postgres.Open(ctx, cfg.DatabaseURL, int32(cfg.Sync.Workers+2))
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return st, nil

	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return st, nil

	case config.DriverBigQuery:
		repo, err := infraBQ.NewCategoryRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return repo, nil

	default:
		return nil, fmt.Errorf("OpenStore: unknown store driver %q", cfg.StoreDriver)
	}
}

// NewLoader returns a loader for local paths, gs:// and s3:// URIs.
func NewLoader(cfg *config.Config) *source.Loader {
	return source.NewLoader().
		WithFetcher("gs", source.GCSFetcher{}).
		WithFetcher("s3", source.NewS3Fetcher(source.S3Options{
			Region:    cfg.AWS.Region,
			Endpoint:  cfg.AWS.Endpoint,
			PathStyle: cfg.AWS.PathStyle,
		}))
}

// NewSyncer builds a Syncer from the sync settings in cfg.
func NewSyncer(cfg *config.Config, st store.CategoryStore, loader pipeline.RecordLoader, c pipeline.CacheInvalidator, obs pipeline.SyncObserver) *pipeline.Syncer {
	policy := pipeline.SentinelStrict
	if cfg.Sync.LegacySub1Sentinel {
		policy = pipeline.SentinelLegacySub1
	}

	return &pipeline.Syncer{
		Loader:     loader,
		Store:      st,
		Normalizer: pipeline.Normalizer{Policy: policy},
		Upserter: pipeline.NewUpserter(st,
			pipeline.WithBatchSize(cfg.Sync.BatchSize),
			pipeline.WithWorkers(cfg.Sync.Workers),
			pipeline.WithErrorDetailLimit(cfg.Sync.ErrorDetailLimit),
		),
		Cache:    c,
		Observer: obs,
		Source:   cfg.CategorySource,
		Timeout:  cfg.Sync.Timeout,
	}
}
