// Package app assembles the acquisition pipeline from configuration.
package app

import (
	"context"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/api"
	"github.com/williampepple1/listings-scraper/internal/cache"
	"github.com/williampepple1/listings-scraper/internal/config"
	"github.com/williampepple1/listings-scraper/internal/extraction"
	"github.com/williampepple1/listings-scraper/internal/filter"
	"github.com/williampepple1/listings-scraper/internal/metrics"
	"github.com/williampepple1/listings-scraper/internal/scraper"
	"github.com/williampepple1/listings-scraper/internal/storage"
)

// connectTimeout bounds the startup checks against Redis and PostgreSQL
const connectTimeout = 5 * time.Second

// App holds the wired pipeline
type App struct {
	Config       *config.AppConfig
	Cache        cache.Store
	Orchestrator *scraper.Orchestrator
	Filter       *filter.Filter
	Metrics      *metrics.Metrics
	Archive      *storage.PostgresStore
	Checks       map[string]api.Pinger

	logger  *zap.Logger
	closers []func()
}

// New wires the pipeline. Redis and PostgreSQL are optional: when configured
// but unreachable the app logs a warning and runs without them.
func New(ctx context.Context, cfg *config.AppConfig, reg prometheus.Registerer, logger *zap.Logger) *App {
	a := &App{
		Config:  cfg,
		Metrics: metrics.New(reg),
		Checks:  make(map[string]api.Pinger),
		logger:  logger,
	}

	a.Cache = a.newCache(ctx)
	a.Archive = a.newArchive(ctx)

	retriever := scraper.New(cfg, logger)
	if c, ok := retriever.(io.Closer); ok {
		a.closers = append(a.closers, func() { c.Close() })
	}

	fc := scraper.FetchContext{
		Retriever: retriever,
		Extractor: extraction.NewExtractor(&cfg.Extraction, cfg.Scraper.BaseURL, logger),
		Cache:     a.Cache,
		Metrics:   a.Metrics,
		Logger:    logger,
	}
	if a.Archive != nil {
		fc.Archive = a.Archive
	}
	a.Orchestrator = scraper.NewOrchestrator(&cfg.Scraper, fc)
	a.Filter = filter.New(&cfg.Filter, a.Metrics, logger)

	return a
}

func (a *App) newCache(ctx context.Context) cache.Store {
	cfg := a.Config.Cache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := cache.NewRedisStore(client, cfg.TTL, a.logger)

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		err := store.Ping(pingCtx)
		if err == nil {
			a.logger.Info("using redis cache", zap.String("addr", cfg.RedisAddr))
			a.Checks["redis"] = store
			a.closers = append(a.closers, func() { client.Close() })
			return store
		}
		a.logger.Warn("redis unreachable, falling back to file cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		client.Close()
	}

	a.logger.Info("using file cache", zap.String("dir", cfg.Dir))
	return cache.NewFileStore(cfg.Dir, cfg.TTL, a.logger)
}

func (a *App) newArchive(ctx context.Context) *storage.PostgresStore {
	connStr := a.Config.Storage.PostgresURL
	if connStr == "" {
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	store, err := storage.NewPostgresStore(connectCtx, connStr)
	if err != nil {
		a.logger.Warn("listing archive disabled", zap.Error(err))
		return nil
	}
	if err := store.Migrate(connectCtx); err != nil {
		a.logger.Warn("listing archive disabled", zap.Error(err))
		store.Close()
		return nil
	}

	a.Checks["postgres"] = store
	a.closers = append(a.closers, store.Close)
	return store
}

// APIDependencies returns what the HTTP API serves from
func (a *App) APIDependencies(gatherer prometheus.Gatherer) api.Dependencies {
	deps := api.Dependencies{
		Fetcher:  a.Orchestrator,
		Filter:   a.Filter,
		Checks:   a.Checks,
		Gatherer: gatherer,
	}
	if a.Archive != nil {
		deps.Archive = a.Archive
	}
	return deps
}

// Close waits for in-flight fetches, then releases the browser and the
// backing service connections
func (a *App) Close() {
	a.Orchestrator.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
