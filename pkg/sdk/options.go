package cardex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "memory" (default), "sqlite", "redis" or "valkey"
	path     string
	addrs    []string
	password string

	keyPrefix   string
	compression string

	source  Source
	feedURL string
	feedDir string

	concurrency int
	legacy      bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithMemory keeps the local copy of the feed in process memory. Every New
// starts from an empty copy. This is the default.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
	})
}

// WithSQLite keeps the local copy of the feed in a SQLite file.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "sqlite"
		c.path = path
	})
}

// WithValkey keeps the local copy of the feed in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis keeps the local copy of the feed in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix namespaces the local store keys. Default: "cardex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithCompression selects how chunks are stored locally: "none", "zstd"
// (default) or "lz4".
func WithCompression(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.compression = name
	})
}

// WithHTTPFeed loads the feed from a static HTTP host.
func WithHTTPFeed(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.feedURL = baseURL
	})
}

// WithDirFeed loads the feed from a local directory.
func WithDirFeed(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.feedDir = dir
	})
}

// WithSource loads the feed from a custom source.
func WithSource(s Source) Option {
	return optionFunc(func(c *clientConfig) {
		c.source = s
	})
}

// WithConcurrency bounds parallel chunk fetches. Default: 4.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.concurrency = n
	})
}

// WithLegacyDialect also accepts '=' as a field marker in queries (cmc=3).
func WithLegacyDialect() Option {
	return optionFunc(func(c *clientConfig) {
		c.legacy = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
