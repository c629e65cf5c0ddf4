package initializer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/amirasaad/awgen/infra"
	"github.com/amirasaad/awgen/infra/cache"
	"github.com/amirasaad/awgen/infra/metrics"
	settingsrepo "github.com/amirasaad/awgen/infra/repository/settings"
	"github.com/amirasaad/awgen/pkg/app"
	"github.com/amirasaad/awgen/pkg/config"
	"github.com/amirasaad/awgen/pkg/eventbus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

// InitializeDependencies initializes all the application dependencies
func InitializeDependencies(cfg *config.App) (
	deps *app.Deps,
	err error,
) {
	logger := setupLogger(cfg.Log)
	deps = &app.Deps{Logger: logger}

	// Release whatever was opened when a later step fails.
	defer func() {
		if err != nil {
			for _, c := range deps.Closers {
				err = multierr.Append(err, c.Close())
			}
			deps = nil
		}
	}()

	dbPath := cfg.DatabasePath()
	db, err := infra.NewDBConnection(cfg.DB, dbPath)
	if err != nil {
		logger.Error("Failed to initialize database", "path", dbPath, "error", err)
		return deps, fmt.Errorf("failed to open settings database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return deps, err
	}
	deps.Closers = append(deps.Closers, sqlDB)
	if err = settingsrepo.Migrate(db); err != nil {
		return deps, fmt.Errorf("failed to migrate settings database: %w", err)
	}

	settingsCache, closer := initCache(cfg, logger)
	if closer != nil {
		deps.Closers = append(deps.Closers, closer)
	}
	deps.Settings = cache.NewSettingsStore(settingsrepo.New(db), settingsCache, logger)

	registry := prometheus.NewRegistry()
	if err = registry.Register(collectors.NewGoCollector()); err != nil {
		return deps, err
	}
	if err = registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return deps, err
	}
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return deps, fmt.Errorf("failed to register metrics: %w", err)
	}
	deps.Gatherer = registry
	deps.Packets = recorder
	deps.Bus = eventbus.New(
		eventbus.WithLogger(logger),
		eventbus.WithRecorder(recorder),
	)

	logger.Info("Dependencies initialized", "db", dbPath)
	return deps, nil
}

// initCache picks the settings cache. Redis is used when configured and
// reachable, the in-memory LRU otherwise.
func initCache(cfg *config.App, logger *slog.Logger) (cache.Cache, io.Closer) {
	size, ttl := cache.DefaultSize, time.Duration(0)
	if cfg.Cache != nil {
		size, ttl = cfg.Cache.Size, cfg.Cache.TTL
	}
	memory := func() (cache.Cache, io.Closer) {
		logger.Info("Using in-memory settings cache", "size", size, "ttl", ttl)
		return cache.NewMemoryCache(size, ttl), nil
	}

	if cfg.Redis == nil || cfg.Redis.URL == "" {
		return memory()
	}

	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Warn("Invalid redis URL, falling back to memory cache", "error", err)
		return memory()
	}
	opt.PoolSize = cfg.Redis.PoolSize
	opt.DialTimeout = cfg.Redis.DialTimeout
	opt.ReadTimeout = cfg.Redis.ReadTimeout
	opt.WriteTimeout = cfg.Redis.WriteTimeout

	rc := cache.NewRedisCacheWithOptions(opt, cfg.Redis.KeyPrefix, ttl, logger)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		logger.Warn("Redis unreachable, falling back to memory cache", "error", err)
		_ = rc.Close()
		return memory()
	}
	logger.Info("Using redis settings cache", "prefix", cfg.Redis.KeyPrefix)
	return rc, rc
}
