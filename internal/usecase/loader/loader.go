// Package loader reconciles the locally persisted catalog with the remote
// chunk manifest and loads the result into the catalog.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/cardex/internal/domain"
	"github.com/kailas-cloud/cardex/internal/domain/card"
	domchunk "github.com/kailas-cloud/cardex/internal/domain/chunk"
	"github.com/kailas-cloud/cardex/internal/domain/protocol"
	"github.com/kailas-cloud/cardex/internal/mailbox"
	"github.com/kailas-cloud/cardex/internal/metrics"
)

// DefaultConcurrency bounds parallel chunk fetches.
const DefaultConcurrency = 4

// Option configures a Loader.
type Option func(*Loader)

// WithConcurrency sets the number of chunks fetched in parallel.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// Loader runs load cycles. Concurrent Load calls share one cycle.
type Loader struct {
	source      Source
	cache       Cache
	catalog     Catalog
	concurrency int
	logger      *zap.Logger

	group singleflight.Group
	mu    sync.Mutex
	subs  map[*mailbox.Mailbox[Event]]struct{}
}

// New creates a Loader.
func New(source Source, cache Cache, cat Catalog, opts ...Option) *Loader {
	l := &Loader{
		source:      source,
		cache:       cache,
		catalog:     cat,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
		subs:        make(map[*mailbox.Mailbox[Event]]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load runs a load cycle, or joins the one already running. progress, if
// non-nil, is called on the caller's goroutine for every event emitted after
// the call joined, in order. A slow callback delays only its own caller.
//
// The cycle itself is not bound to ctx: a cancelled caller stops waiting and
// gets an error wrapping domain.ErrAborted while the cycle completes for the
// others.
func (l *Loader) Load(ctx context.Context, progress func(Event)) (Report, error) {
	events := l.subscribe()
	defer l.unsubscribe(events)

	done := l.group.DoChan("load", func() (any, error) {
		return l.cycle(context.WithoutCancel(ctx))
	})

	deliver := func() error {
		for _, ev := range events.Take() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if progress != nil {
				progress(ev)
			}
		}
		return ctx.Err()
	}
	for {
		select {
		case <-events.Ready():
			if err := deliver(); err != nil {
				return Report{}, fmt.Errorf("%w: load: %w", domain.ErrAborted, err)
			}
		case res := <-done:
			// Every event of the cycle was pushed before it returned.
			if err := deliver(); err != nil {
				return Report{}, fmt.Errorf("%w: load: %w", domain.ErrAborted, err)
			}
			report, _ := res.Val.(Report)
			return report, res.Err
		case <-ctx.Done():
			return Report{}, fmt.Errorf("%w: load: %w", domain.ErrAborted, ctx.Err())
		}
	}
}

func (l *Loader) subscribe() *mailbox.Mailbox[Event] {
	m := mailbox.New[Event]()
	l.mu.Lock()
	l.subs[m] = struct{}{}
	l.mu.Unlock()
	return m
}

func (l *Loader) unsubscribe(m *mailbox.Mailbox[Event]) {
	l.mu.Lock()
	delete(l.subs, m)
	l.mu.Unlock()
}

func (l *Loader) emit(phase protocol.Phase, current, total int) {
	ev := Event{Phase: phase, Current: current, Total: total}
	l.mu.Lock()
	defer l.mu.Unlock()
	for m := range l.subs {
		m.Push(ev)
	}
}

func (l *Loader) cycle(ctx context.Context) (Report, error) {
	start := time.Now()
	report, err := l.run(ctx)
	report.Duration = time.Since(start)
	metrics.LoadDuration.Observe(report.Duration.Seconds())

	switch {
	case err != nil:
		metrics.LoadCyclesTotal.WithLabelValues("error").Inc()
		l.logger.Error("Catalog load failed", zap.Error(err), zap.Duration("duration", report.Duration))
		return report, err
	case report.Offline:
		metrics.LoadCyclesTotal.WithLabelValues("offline").Inc()
	default:
		metrics.LoadCyclesTotal.WithLabelValues("online").Inc()
	}

	fields := []zap.Field{
		zap.Bool("offline", report.Offline),
		zap.Int("fetched", report.Fetched),
		zap.Int("cached", report.Cached),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", len(report.Failed)),
		zap.Int("chunks", report.Chunks),
		zap.Int("cards", report.Cards),
		zap.Int("rejected", report.Rejected),
		zap.Duration("duration", report.Duration),
	}
	if w := report.Warning(); w != nil {
		l.logger.Warn("Catalog loaded with warnings", append(fields, zap.Error(w))...)
	} else {
		l.logger.Info("Catalog loaded", fields...)
	}
	return report, nil
}

func (l *Loader) run(ctx context.Context) (Report, error) {
	var report Report

	local, err := l.cache.Manifest(ctx)
	if err != nil {
		l.logger.Warn("Local manifest unreadable, refetching everything", zap.Error(err))
		local = domchunk.Manifest{}
	}

	var accepted domchunk.Manifest
	remote, err := l.source.Manifest(ctx)
	if err != nil {
		report.Offline = true
		report.ManifestErr = err
		l.logger.Warn("Catalog feed unreachable, using local copy",
			zap.String("source", l.source.Name()), zap.Error(err))
		if len(local) == 0 {
			return report, fmt.Errorf("%w: no local catalog: %w", domain.ErrFeedUnavailable, err)
		}
		accepted = local
	} else {
		accepted = l.sync(ctx, local, remote, &report)
		if err := l.cache.SaveManifest(ctx, accepted); err != nil {
			report.PersistErr = err
		}
	}

	cards, err := l.read(ctx, accepted, &report)
	if err != nil {
		return report, err
	}
	res := l.catalog.Replace(cards)
	report.Cards = res.Accepted
	report.Rejected = res.Rejected
	report.Duplicates = res.Duplicates
	return report, nil
}

type fetched struct {
	chunk   domchunk.Chunk
	payload []byte
	err     error
}

// sync fetches changed chunks, drops orphans and returns the accepted manifest.
func (l *Loader) sync(ctx context.Context, local, remote domchunk.Manifest, report *Report) domchunk.Manifest {
	persisted := make(map[int]struct{})
	indexes, err := l.cache.Indexes(ctx)
	if err != nil {
		l.logger.Warn("Listing cached chunks failed", zap.Error(err))
	}
	for _, idx := range indexes {
		persisted[idx] = struct{}{}
	}
	previous := local.ByIndex()

	var stale []domchunk.Chunk
	for _, c := range remote {
		old, ok := previous[c.Index]
		_, cached := persisted[c.Index]
		if ok && cached && old.Hash == c.Hash {
			report.Cached++
			continue
		}
		stale = append(stale, c)
	}
	metrics.ChunkSyncTotal.WithLabelValues("cached").Add(float64(report.Cached))

	failed := make(map[int]struct{})
	results := make(chan fetched)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	go func() {
		for _, c := range stale {
			g.Go(func() error {
				payload, err := l.fetch(gctx, c)
				results <- fetched{chunk: c, payload: payload, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	done := 0
	for r := range results {
		done++
		err := r.err
		if err == nil {
			err = l.cache.SaveChunk(ctx, r.chunk.Index, r.payload)
		}
		if err != nil {
			failed[r.chunk.Index] = struct{}{}
			report.Failed = append(report.Failed, ChunkError{Index: r.chunk.Index, Err: err})
			metrics.ChunkSyncTotal.WithLabelValues("failed").Inc()
			l.logger.Warn("Chunk sync failed", zap.Int("chunk", r.chunk.Index), zap.Error(err))
		} else {
			report.Fetched++
			metrics.ChunkSyncTotal.WithLabelValues("fetched").Inc()
		}
		l.emit(protocol.PhaseNetwork, done, len(stale))
	}

	accepted := make(domchunk.Manifest, 0, len(remote))
	keep := make(map[int]struct{}, len(remote))
	for _, c := range remote {
		if _, bad := failed[c.Index]; bad {
			old, ok := previous[c.Index]
			if _, cached := persisted[c.Index]; !ok || !cached {
				continue
			}
			c = old
		}
		accepted = append(accepted, c)
		keep[c.Index] = struct{}{}
	}

	for _, idx := range indexes {
		if _, ok := keep[idx]; ok {
			continue
		}
		if err := l.cache.DeleteChunk(ctx, idx); err != nil {
			l.logger.Warn("Deleting orphan chunk failed", zap.Int("chunk", idx), zap.Error(err))
			continue
		}
		report.Deleted++
		metrics.ChunkSyncTotal.WithLabelValues("deleted").Inc()
	}
	return accepted
}

// fetch downloads a chunk and checks that it decodes.
func (l *Loader) fetch(ctx context.Context, c domchunk.Chunk) ([]byte, error) {
	payload, err := l.source.Chunk(ctx, c)
	if err != nil {
		return nil, err
	}
	if _, err := card.DecodeList(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// read loads every accepted chunk from the cache.
func (l *Loader) read(ctx context.Context, accepted domchunk.Manifest, report *Report) ([]card.Card, error) {
	var cards []card.Card
	for i, c := range accepted {
		chunkCards, err := l.cache.Chunk(ctx, c.Index)
		if err != nil {
			report.Failed = append(report.Failed, ChunkError{Index: c.Index, Err: err})
			l.logger.Warn("Reading cached chunk failed", zap.Int("chunk", c.Index), zap.Error(err))
		} else {
			cards = append(cards, chunkCards...)
			report.Chunks++
		}
		l.emit(protocol.PhaseDB, i+1, len(accepted))
	}
	if report.Chunks == 0 && len(accepted) > 0 {
		return nil, errors.Join(fmt.Errorf("%w: no chunk could be read", domain.ErrFeedUnavailable), report.Warning())
	}
	return cards, nil
}
