package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the cardex service configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Feed    FeedConfig    `yaml:"feed"`
	Search  SearchConfig  `yaml:"search"`
	Worker  WorkerConfig  `yaml:"worker"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File       string `yaml:"file"`  // optional rotating JSON log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	LoadWaitMs      int `yaml:"load_wait_ms"` // REST wait for the first catalog load
}

// StorageConfig holds the local chunk store settings.
type StorageConfig struct {
	Driver           string   `yaml:"driver"` // sqlite, redis, valkey, memory (default: sqlite)
	Path             string   `yaml:"path"`   // sqlite database file
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	Compression      string   `yaml:"compression"` // none, zstd, lz4 (default: zstd)
}

// FeedConfig holds the remote catalog feed settings.
type FeedConfig struct {
	Kind         string `yaml:"kind"` // http, minio, dir (default: http)
	ManifestPath string `yaml:"manifest_path"`
	Concurrency  int    `yaml:"concurrency"`

	// http
	BaseURL          string  `yaml:"base_url"`
	TimeoutSec       int     `yaml:"timeout_sec"`
	RateLimit        float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst            int     `yaml:"burst"`
	MaxRetries       int     `yaml:"max_retries"`
	RetryBaseDelayMs int     `yaml:"retry_base_delay_ms"`
	UserAgent        string  `yaml:"user_agent"`

	// minio
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`

	// dir
	Dir             string `yaml:"dir"`
	Watch           bool   `yaml:"watch"`
	WatchDebounceMs int    `yaml:"watch_debounce_ms"`
}

// SearchConfig holds catalog search settings.
type SearchConfig struct {
	Dialect      string `yaml:"dialect"` // standard, legacy (default: standard)
	YieldEvery   int    `yaml:"yield_every"`
	SuggestLimit int    `yaml:"suggest_limit"`
}

// WorkerConfig holds websocket worker settings.
type WorkerConfig struct {
	AbortMemory    int `yaml:"abort_memory"`
	InboxSize      int `yaml:"inbox_size"`
	MaxMessageSize int `yaml:"max_message_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.LoadWaitMs <= 0 {
		c.HTTP.LoadWaitMs = 5000
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/cardex.db"
	}
	if c.Storage.ReadinessTimeout <= 0 {
		c.Storage.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "cardex:"
	}
	if c.Storage.Compression == "" {
		c.Storage.Compression = "zstd"
	}
	if c.Feed.Kind == "" {
		c.Feed.Kind = "http"
	}
	if c.Feed.ManifestPath == "" {
		c.Feed.ManifestPath = "manifest.json"
	}
	if c.Feed.Concurrency <= 0 {
		c.Feed.Concurrency = 4
	}
	if c.Feed.TimeoutSec <= 0 {
		c.Feed.TimeoutSec = 30
	}
	if c.Feed.MaxRetries <= 0 {
		c.Feed.MaxRetries = 3
	}
	if c.Feed.RetryBaseDelayMs <= 0 {
		c.Feed.RetryBaseDelayMs = 1000
	}
	if c.Feed.UserAgent == "" {
		c.Feed.UserAgent = "cardex"
	}
	if c.Feed.WatchDebounceMs <= 0 {
		c.Feed.WatchDebounceMs = 500
	}
	if c.Search.Dialect == "" {
		c.Search.Dialect = "standard"
	}
	if c.Search.YieldEvery <= 0 {
		c.Search.YieldEvery = 1000
	}
	if c.Search.SuggestLimit <= 0 {
		c.Search.SuggestLimit = 10
	}
	if c.Worker.AbortMemory <= 0 {
		c.Worker.AbortMemory = 1024
	}
	if c.Worker.InboxSize <= 0 {
		c.Worker.InboxSize = 64
	}
	if c.Worker.MaxMessageSize <= 0 {
		c.Worker.MaxMessageSize = 64 << 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Storage.Driver {
	case "sqlite", "memory":
	case "redis", "valkey":
		if len(c.Storage.Addrs) == 0 {
			return fmt.Errorf("storage.addrs is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("storage.driver must be sqlite, redis, valkey or memory, got %q", c.Storage.Driver)
	}
	switch c.Storage.Compression {
	case "none", "zstd", "lz4":
	default:
		return fmt.Errorf("storage.compression must be none, zstd or lz4, got %q", c.Storage.Compression)
	}

	switch c.Feed.Kind {
	case "http":
		if c.Feed.BaseURL == "" {
			return fmt.Errorf("feed.base_url is required for kind \"http\"")
		}
	case "minio":
		if c.Feed.Endpoint == "" || c.Feed.Bucket == "" {
			return fmt.Errorf("feed.endpoint and feed.bucket are required for kind \"minio\"")
		}
	case "dir":
		if c.Feed.Dir == "" {
			return fmt.Errorf("feed.dir is required for kind \"dir\"")
		}
	default:
		return fmt.Errorf("feed.kind must be http, minio or dir, got %q", c.Feed.Kind)
	}
	if c.Feed.RateLimit < 0 {
		return fmt.Errorf("feed.rate_limit must not be negative, got %v", c.Feed.RateLimit)
	}

	switch c.Search.Dialect {
	case "standard", "legacy":
	default:
		return fmt.Errorf("search.dialect must be \"standard\" or \"legacy\", got %q", c.Search.Dialect)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
