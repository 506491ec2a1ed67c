// Package objstore reads the catalog feed from an S3-compatible bucket.
package objstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cardex/internal/domain"
	domchunk "github.com/kailas-cloud/cardex/internal/domain/chunk"
	"github.com/kailas-cloud/cardex/internal/metrics"
)

// MaxObjectSize caps a single manifest or chunk object.
const MaxObjectSize = 256 << 20

// Config holds the bucket settings.
type Config struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Region       string
	UseSSL       bool
	Bucket       string
	Prefix       string
	ManifestPath string
	Logger       *zap.Logger
}

// Source reads feed objects from a bucket.
type Source struct {
	client       *minio.Client
	bucket       string
	prefix       string
	manifestPath string
	logger       *zap.Logger
}

// New creates a bucket feed source.
func New(cfg Config) (*Source, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return NewSource(client, cfg.Bucket, cfg.Prefix, cfg.ManifestPath, cfg.Logger), nil
}

// NewSource wraps an existing client. prefix is prepended to every object key.
func NewSource(client *minio.Client, bucket, prefix, manifestPath string, logger *zap.Logger) *Source {
	if manifestPath == "" {
		manifestPath = "manifest.json"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{client: client, bucket: bucket, prefix: prefix, manifestPath: manifestPath, logger: logger}
}

// Name identifies the source in logs and metrics.
func (s *Source) Name() string { return "minio" }

// Manifest reads and validates the manifest object.
func (s *Source) Manifest(ctx context.Context) (domchunk.Manifest, error) {
	data, err := s.get(ctx, "manifest", s.manifestPath)
	if err != nil {
		return nil, err
	}
	var m domchunk.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return m, nil
}

// Chunk reads the chunk object named by c.Path.
func (s *Source) Chunk(ctx context.Context, c domchunk.Chunk) ([]byte, error) {
	return s.get(ctx, "chunk", c.Path)
}

func (s *Source) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *Source) get(ctx context.Context, kind, name string) ([]byte, error) {
	key := s.key(name)
	start := time.Now()
	data, err := s.read(ctx, key)
	metrics.FeedRequestDuration.WithLabelValues(s.Name(), kind).Observe(time.Since(start).Seconds())
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "" {
			code = "error"
		}
		metrics.FeedRequestsTotal.WithLabelValues(s.Name(), kind, code).Inc()
		s.logger.Warn("Feed object read failed",
			zap.String("bucket", s.bucket), zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %s/%s: %w", domain.ErrFeedUnavailable, s.bucket, key, err)
	}
	metrics.FeedRequestsTotal.WithLabelValues(s.Name(), kind, "ok").Inc()
	return data, nil
}

func (s *Source) read(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, MaxObjectSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxObjectSize {
		return nil, fmt.Errorf("object exceeds %d bytes", MaxObjectSize)
	}
	return data, nil
}
