package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cardex/internal/config"
	"github.com/kailas-cloud/cardex/internal/db"
	"github.com/kailas-cloud/cardex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/cardex/internal/db/redis"
	"github.com/kailas-cloud/cardex/internal/db/sqlite"
	"github.com/kailas-cloud/cardex/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/cardex/internal/logger"
	"github.com/kailas-cloud/cardex/internal/metrics"
	chunkrepo "github.com/kailas-cloud/cardex/internal/repository/chunk"
	"github.com/kailas-cloud/cardex/internal/transport/dirfeed"
	"github.com/kailas-cloud/cardex/internal/transport/feed"
	"github.com/kailas-cloud/cardex/internal/transport/objstore"
	"github.com/kailas-cloud/cardex/internal/usecase/catalog"
	"github.com/kailas-cloud/cardex/internal/usecase/loader"
	"github.com/kailas-cloud/cardex/internal/usecase/worker"
)

// app is the composition root shared by every command.
type app struct {
	env     string
	cfg     config.Config
	logger  *zap.Logger
	store   db.Store
	source  loader.Source
	dir     *dirfeed.Source // set for the dir feed, which can be watched
	catalog *catalog.Store
	loader  *loader.Loader
}

func newApp(cmd *cobra.Command) (*app, error) {
	env, err := cmd.Flags().GetString("env")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterCatalogMetrics()

	a := &app{env: env, cfg: cfg, logger: logger}
	if err := a.openStore(cmd.Context()); err != nil {
		_ = logger.Sync()
		return nil, err
	}
	if err := a.openSource(); err != nil {
		a.close()
		return nil, err
	}

	a.catalog = catalog.New(
		catalog.WithDialect(dialect(cfg.Search.Dialect)),
		catalog.WithYieldEvery(cfg.Search.YieldEvery),
		catalog.WithLogger(logger),
	)
	cache := chunkrepo.New(a.store, cfg.Storage.KeyPrefix).
		WithCompression(chunkrepo.Compression(cfg.Storage.Compression))
	a.loader = loader.New(a.source, cache, a.catalog,
		loader.WithConcurrency(cfg.Feed.Concurrency),
		loader.WithLogger(logger),
	)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	driver := a.cfg.Storage.Driver
	switch driver {
	case "redis", "valkey":
		rs, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    a.cfg.Storage.Addrs,
			Password: a.cfg.Storage.Password,
		})
		if err != nil {
			return fmt.Errorf("open %s store: %w", driver, err)
		}
		timeout := time.Duration(a.cfg.Storage.ReadinessTimeout) * time.Second
		if err := rs.WaitForReady(ctx, timeout); err != nil {
			rs.Close()
			return fmt.Errorf("%s not ready: %w", driver, err)
		}
		a.store = rs
	case "memory":
		a.store = memory.NewStore()
	default:
		ss, err := sqlite.Open(a.cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("open %s store: %w", driver, err)
		}
		a.store = ss
	}
	a.logger.Debug("Opened local store", zap.String("driver", driver))
	return nil
}

func (a *app) openSource() error {
	fc := a.cfg.Feed
	switch fc.Kind {
	case "minio":
		src, err := objstore.New(objstore.Config{
			Endpoint:     fc.Endpoint,
			AccessKey:    fc.AccessKey,
			SecretKey:    fc.SecretKey,
			Region:       fc.Region,
			UseSSL:       fc.UseSSL,
			Bucket:       fc.Bucket,
			Prefix:       fc.Prefix,
			ManifestPath: fc.ManifestPath,
			Logger:       a.logger,
		})
		if err != nil {
			return fmt.Errorf("create minio feed: %w", err)
		}
		a.source = src
	case "dir":
		a.dir = dirfeed.New(fc.Dir, fc.ManifestPath, a.logger)
		a.source = a.dir
	default:
		src, err := feed.New(feed.Config{
			BaseURL:        fc.BaseURL,
			ManifestPath:   fc.ManifestPath,
			Timeout:        time.Duration(fc.TimeoutSec) * time.Second,
			RateLimit:      fc.RateLimit,
			Burst:          fc.Burst,
			MaxRetries:     fc.MaxRetries,
			RetryBaseDelay: time.Duration(fc.RetryBaseDelayMs) * time.Millisecond,
			UserAgent:      fc.UserAgent,
			Logger:         a.logger,
		})
		if err != nil {
			return fmt.Errorf("create http feed: %w", err)
		}
		a.source = src
	}
	return nil
}

// newWorker creates a worker over the shared catalog and loader.
func (a *app) newWorker() *worker.Worker {
	return worker.New(a.catalog, a.loader,
		worker.WithAbortMemory(a.cfg.Worker.AbortMemory),
		worker.WithLogger(a.logger),
	)
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

func dialect(name string) query.Dialect {
	if name == "legacy" {
		return query.Legacy
	}
	return query.Standard
}
