// Package feed fetches the catalog manifest and chunk documents over HTTP.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/cardex/internal/domain"
	domchunk "github.com/kailas-cloud/cardex/internal/domain/chunk"
	"github.com/kailas-cloud/cardex/internal/metrics"
)

// Feed request limits.
const (
	DefaultManifestPath = "manifest.json"
	DefaultMaxRetries   = 3
	// MaxDocumentSize caps a single manifest or chunk body.
	MaxDocumentSize = 256 << 20
)

// Config holds the HTTP feed settings.
type Config struct {
	BaseURL      string
	ManifestPath string
	Timeout      time.Duration
	// RateLimit is requests per second; 0 disables limiting.
	RateLimit      float64
	Burst          int
	MaxRetries     int
	RetryBaseDelay time.Duration
	UserAgent      string
	Logger         *zap.Logger
}

// Source reads the feed from a static HTTP host.
type Source struct {
	client         *http.Client
	base           *url.URL
	manifestPath   string
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
	userAgent      string
	logger         *zap.Logger
}

// New creates an HTTP feed source.
func New(cfg Config) (*Source, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid feed base url %q", cfg.BaseURL)
	}
	if cfg.ManifestPath == "" {
		cfg.ManifestPath = DefaultManifestPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Source{
		client:         &http.Client{Timeout: cfg.Timeout},
		base:           base,
		manifestPath:   cfg.ManifestPath,
		limiter:        limiter,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		userAgent:      cfg.UserAgent,
		logger:         cfg.Logger,
	}, nil
}

// Name identifies the source in logs and metrics.
func (s *Source) Name() string { return "http" }

// Manifest fetches and validates the manifest document.
func (s *Source) Manifest(ctx context.Context) (domchunk.Manifest, error) {
	body, err := s.fetch(ctx, "manifest", s.manifestPath)
	if err != nil {
		return nil, err
	}
	var m domchunk.Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return m, nil
}

// Chunk fetches the raw chunk document named by c.Path, relative to the base URL.
func (s *Source) Chunk(ctx context.Context, c domchunk.Chunk) ([]byte, error) {
	return s.fetch(ctx, "chunk", c.Path)
}

func (s *Source) fetch(ctx context.Context, kind, ref string) ([]byte, error) {
	rel, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid %s path %q: %w", kind, ref, err)
	}
	target := s.base.ResolveReference(rel)

	start := time.Now()
	body, status, err := s.getWithRetry(ctx, target.String())
	metrics.FeedRequestDuration.WithLabelValues(s.Name(), kind).Observe(time.Since(start).Seconds())
	metrics.FeedRequestsTotal.WithLabelValues(s.Name(), kind, status).Inc()
	if err != nil {
		s.logger.Warn("Feed request failed",
			zap.String("kind", kind), zap.String("url", target.String()), zap.Error(err))
		return nil, err
	}
	return body, nil
}

// getWithRetry retries rate-limited (429) and server-error responses with
// exponential backoff. status is the metrics label for the final attempt.
func (s *Source) getWithRetry(ctx context.Context, target string) (body []byte, status string, err error) {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, "canceled", fmt.Errorf("%w: %w", domain.ErrFeedUnavailable, err)
		}

		body, code, err := s.get(ctx, target)
		status = statusLabel(code, err)
		if err == nil && code == http.StatusOK {
			return body, status, nil
		}
		if err == nil && !retryable(code) {
			return nil, status, fmt.Errorf("%w: GET %s: status %d", domain.ErrFeedUnavailable, target, code)
		}
		if err != nil && code == http.StatusOK {
			// Unreadable or oversized bodies are not retried.
			return nil, status, fmt.Errorf("%w: GET %s: %w", domain.ErrFeedUnavailable, target, err)
		}
		if ctx.Err() != nil {
			return nil, "canceled", fmt.Errorf("%w: %w", domain.ErrFeedUnavailable, ctx.Err())
		}
		if attempt >= s.maxRetries {
			if err == nil {
				err = fmt.Errorf("status %d", code)
			}
			return nil, status, fmt.Errorf("%w: GET %s after %d attempts: %w",
				domain.ErrFeedUnavailable, target, attempt+1, err)
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * s.retryBaseDelay
		s.logger.Debug("Retrying feed request",
			zap.String("url", target), zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return nil, "canceled", fmt.Errorf("%w: %w", domain.ErrFeedUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
	}
}

func (s *Source) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, 0, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, resp.StatusCode, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if len(body) > MaxDocumentSize {
		return nil, resp.StatusCode, fmt.Errorf("document exceeds %d bytes", MaxDocumentSize)
	}
	return body, resp.StatusCode, nil
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func statusLabel(code int, err error) string {
	if err != nil && code == 0 {
		return "error"
	}
	return strconv.Itoa(code)
}
