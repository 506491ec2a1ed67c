package cardex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cardex/internal/db"
	"github.com/kailas-cloud/cardex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/cardex/internal/db/redis"
	"github.com/kailas-cloud/cardex/internal/db/sqlite"
	"github.com/kailas-cloud/cardex/internal/domain/search/query"
	chunkrepo "github.com/kailas-cloud/cardex/internal/repository/chunk"
	"github.com/kailas-cloud/cardex/internal/transport/dirfeed"
	"github.com/kailas-cloud/cardex/internal/transport/feed"
	"github.com/kailas-cloud/cardex/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/cardex/internal/usecase/health"
	"github.com/kailas-cloud/cardex/internal/usecase/loader"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "cardex:"
)

// Client is the cardex SDK entry point.
type Client struct {
	store     db.Store
	catalog   *catalog.Store
	loader    *loader.Loader
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. Nothing is loaded until Load is called.
// The provided context is used for the store readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:      "memory",
		keyPrefix:   defaultKeyPrefix,
		compression: string(chunkrepo.CompressionZstd),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if !chunkrepo.Compression(cfg.compression).IsValid() {
		return nil, fmt.Errorf("cardex: unknown compression %q", cfg.compression)
	}
	source, err := createSource(cfg)
	if err != nil {
		return nil, err
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return wireClient(store, source, cfg, obs), nil
}

func createStore(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "memory":
		return memory.NewStore(), nil
	case "sqlite":
		s, err := sqlite.Open(cfg.path)
		if err != nil {
			return nil, fmt.Errorf("cardex: open sqlite store: %w", err)
		}
		return s, nil
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("cardex: create %s store: %w", cfg.driver, err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("cardex: %s not ready: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("cardex: unknown driver %q", cfg.driver)
	}
}

func createSource(cfg *clientConfig) (Source, error) {
	switch {
	case cfg.source != nil:
		return cfg.source, nil
	case cfg.feedDir != "":
		return dirfeed.New(cfg.feedDir, "", nil), nil
	case cfg.feedURL != "":
		s, err := feed.New(feed.Config{BaseURL: cfg.feedURL, UserAgent: "cardex-sdk"})
		if err != nil {
			return nil, fmt.Errorf("cardex: %w", err)
		}
		return s, nil
	default:
		return nil, errors.New("cardex: feed required (use WithHTTPFeed, WithDirFeed or WithSource)")
	}
}

func wireClient(store db.Store, source Source, cfg *clientConfig, obs *observer) *Client {
	dialect := query.Standard
	if cfg.legacy {
		dialect = query.Legacy
	}
	cat := catalog.New(catalog.WithDialect(dialect), catalog.WithLogger(zap.NewNop()))
	cache := chunkrepo.New(store, cfg.keyPrefix).
		WithCompression(chunkrepo.Compression(cfg.compression))

	var loaderOpts []loader.Option
	if cfg.concurrency > 0 {
		loaderOpts = append(loaderOpts, loader.WithConcurrency(cfg.concurrency))
	}

	return &Client{
		store:     store,
		catalog:   cat,
		loader:    loader.New(source, cache, cat, loaderOpts...),
		healthSvc: healthuc.New(store, cat),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks local store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Loaded reports whether a load has completed.
func (c *Client) Loaded() bool {
	return c.catalog.Loaded()
}

// Load syncs the local store with the feed and swaps in the new catalog.
// When the feed is unreachable the local copy is used and the report is
// marked Offline. Concurrent calls share one cycle. progress may be nil.
func (c *Client) Load(ctx context.Context, progress func(Progress)) (report LoadReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("load", start, err) }()

	var onEvent func(loader.Event)
	if progress != nil {
		onEvent = func(ev loader.Event) {
			progress(Progress{Phase: string(ev.Phase), Current: ev.Current, Total: ev.Total})
		}
	}
	r, err := c.loader.Load(ctx, onEvent)
	if err != nil {
		return LoadReport{}, fmt.Errorf("load: %w", err)
	}
	return fromReport(r), nil
}

// Find returns the card with exactly this name, or ErrCardNotFound.
func (c *Client) Find(ctx context.Context, name string) (_ *Card, err error) {
	start := time.Now()
	defer func() { c.obs.observe("find", start, err) }()

	card, err := c.catalog.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", name, err)
	}
	return card, nil
}

// Suggest returns up to limit card names fuzzily matching prefix.
func (c *Client) Suggest(ctx context.Context, prefix string, limit int) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("suggest", start, err) }()

	names, err := c.catalog.Suggest(ctx, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	return names, nil
}

// Query starts a search for q.
func (c *Client) Query(q string) *SearchBuilder {
	return &SearchBuilder{client: c, query: q}
}
