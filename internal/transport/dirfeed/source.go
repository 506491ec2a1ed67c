// Package dirfeed reads the catalog feed from a local directory laid out like
// the published feed, and watches it for republishing.
package dirfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cardex/internal/domain"
	domchunk "github.com/kailas-cloud/cardex/internal/domain/chunk"
	"github.com/kailas-cloud/cardex/internal/metrics"
)

// DefaultDebounce coalesces the burst of events a feed publish produces.
const DefaultDebounce = 500 * time.Millisecond

// Source reads the manifest and chunks from files under root.
type Source struct {
	root         string
	manifestPath string
	logger       *zap.Logger
}

// New creates a directory feed source.
func New(root, manifestPath string, logger *zap.Logger) *Source {
	if manifestPath == "" {
		manifestPath = "manifest.json"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{root: root, manifestPath: manifestPath, logger: logger}
}

// Name identifies the source in logs and metrics.
func (s *Source) Name() string { return "dir" }

// Manifest reads and validates the manifest file.
func (s *Source) Manifest(_ context.Context) (domchunk.Manifest, error) {
	data, err := s.read("manifest", s.manifestPath)
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

// Chunk reads the chunk document at c.Path, relative to root.
func (s *Source) Chunk(_ context.Context, c domchunk.Chunk) ([]byte, error) {
	return s.read("chunk", c.Path)
}

func (s *Source) read(kind, rel string) ([]byte, error) {
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		metrics.FeedRequestsTotal.WithLabelValues(s.Name(), kind, "error").Inc()
		return nil, fmt.Errorf("%w: %s path %q escapes the feed directory", domain.ErrFeedUnavailable, kind, rel)
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		metrics.FeedRequestsTotal.WithLabelValues(s.Name(), kind, "error").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrFeedUnavailable, err)
	}
	metrics.FeedRequestsTotal.WithLabelValues(s.Name(), kind, "ok").Inc()
	return data, nil
}

// Watch calls onChange after the manifest file is written, created or
// renamed into place, once per burst of events. It blocks until ctx is done.
func (s *Source) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	manifest := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(s.manifestPath)))
	// Watch the directory: publishers usually rename a temp file over the manifest.
	if err := watcher.Add(filepath.Dir(manifest)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(manifest), err)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != manifest {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				s.logger.Info("Feed manifest changed", zap.String("path", manifest))
				onChange()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Feed watcher error", zap.Error(err))
		}
	}
}
