// Package catalog holds the in-memory card catalog and answers find, search
// and suggest requests against it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cardex/internal/domain"
	"github.com/kailas-cloud/cardex/internal/domain/card"
	"github.com/kailas-cloud/cardex/internal/domain/search/filter"
	"github.com/kailas-cloud/cardex/internal/domain/search/query"
	"github.com/kailas-cloud/cardex/internal/domain/search/request"
	"github.com/kailas-cloud/cardex/internal/domain/search/result"
	"github.com/kailas-cloud/cardex/internal/metrics"
)

// DefaultYieldEvery is the number of records scanned between cooperative yields.
const DefaultYieldEvery = 1000

// Option configures a Store.
type Option func(*Store)

// WithSchema replaces the query schema.
func WithSchema(s filter.Schema) Option {
	return func(st *Store) { st.schema = s }
}

// WithDialect selects the query dialect.
func WithDialect(d query.Dialect) Option {
	return func(st *Store) { st.dialect = d }
}

// WithYieldEvery sets the scan stride between yields.
func WithYieldEvery(n int) Option {
	return func(st *Store) {
		if n > 0 {
			st.yieldEvery = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// SearchOption configures a single search.
type SearchOption func(*searchConfig)

type searchConfig struct {
	yield func()
}

// WithYield sets the hook called at every yield point of the scan, before
// cancellation is checked. The default hands the processor to other goroutines.
func WithYield(fn func()) SearchOption {
	return func(c *searchConfig) {
		if fn != nil {
			c.yield = fn
		}
	}
}

// Stats describes the live snapshot.
type Stats struct {
	Loaded   bool
	Cards    int
	LoadedAt time.Time
}

// ReplaceResult reports what Replace accepted.
type ReplaceResult struct {
	Accepted   int
	Rejected   int
	Duplicates int
}

// Store is the in-memory catalog. Readers never lock: Replace swaps an
// immutable snapshot atomically.
type Store struct {
	snap      atomic.Pointer[snapshot]
	ready     chan struct{}
	readyOnce sync.Once

	schema     filter.Schema
	dialect    query.Dialect
	yieldEvery int
	logger     *zap.Logger
}

// New creates an empty, not yet loaded catalog.
func New(opts ...Option) *Store {
	s := &Store{
		ready:      make(chan struct{}),
		schema:     filter.DefaultSchema(),
		dialect:    query.Standard,
		yieldEvery: DefaultYieldEvery,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace validates cards, drops duplicate ids (first wins), sorts by name
// and publishes the result as the live snapshot. The first call marks the
// catalog loaded.
func (s *Store) Replace(cards []card.Card) ReplaceResult {
	var res ReplaceResult
	seen := make(map[string]struct{}, len(cards))
	out := make([]*card.Card, 0, len(cards))
	for i := range cards {
		c := cards[i]
		if err := c.Validate(); err != nil {
			res.Rejected++
			s.logger.Debug("Rejected card", zap.Error(err))
			continue
		}
		if _, dup := seen[c.ID]; dup {
			res.Duplicates++
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, &c)
	}
	slices.SortStableFunc(out, func(a, b *card.Card) int {
		return strings.Compare(a.Name, b.Name)
	})
	res.Accepted = len(out)

	s.snap.Store(newSnapshot(out))
	s.readyOnce.Do(func() { close(s.ready) })
	metrics.CatalogCards.Set(float64(len(out)))
	return res
}

// Loaded reports whether the first load has completed.
func (s *Store) Loaded() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Ready is closed once the first load completes.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// Wait blocks until the catalog is loaded. A cancelled ctx aborts the wait.
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for catalog: %w", domain.ErrAborted, ctx.Err())
	}
}

// Stats describes the live snapshot.
func (s *Store) Stats() Stats {
	snap := s.snap.Load()
	if snap == nil {
		return Stats{}
	}
	return Stats{Loaded: true, Cards: len(snap.cards), LoadedAt: snap.loadedAt}
}

// FindByName returns the first card whose name equals name exactly.
func (s *Store) FindByName(ctx context.Context, name string) (*card.Card, error) {
	if err := s.Wait(ctx); err != nil {
		return nil, err
	}
	cards := s.snap.Load().cards
	i := sort.Search(len(cards), func(i int) bool { return cards[i].Name >= name })
	if i < len(cards) && cards[i].Name == name {
		return cards[i], nil
	}
	return nil, domain.ErrCardNotFound
}

// Search filters the catalog by the request's query and returns one page of
// matches in the requested order. Total counts every match. The scan yields
// every yieldEvery records and checks ctx; a cancelled search returns an
// error wrapping domain.ErrAborted.
func (s *Store) Search(ctx context.Context, req request.Request, opts ...SearchOption) (result.Page, error) {
	cfg := searchConfig{yield: runtime.Gosched}
	for _, opt := range opts {
		opt(&cfg)
	}

	start := time.Now()
	page, err := s.search(ctx, req, cfg)
	metrics.SearchDuration.WithLabelValues(string(req.Sort())).Observe(time.Since(start).Seconds())
	metrics.SearchesTotal.WithLabelValues(outcome(err)).Inc()
	return page, err
}

func (s *Store) search(ctx context.Context, req request.Request, cfg searchConfig) (result.Page, error) {
	if err := s.Wait(ctx); err != nil {
		return result.Page{}, err
	}
	if err := ctx.Err(); err != nil {
		return result.Page{}, aborted(err)
	}

	f := filter.Compile(s.schema, query.ParseDialect(req.Query(), s.dialect))
	if unknown := f.Unknown(); len(unknown) > 0 {
		s.logger.Debug("Ignoring unknown query fields", zap.Strings("fields", unknown))
	}
	cards := s.snap.Load().ordered(req.Sort(), req.Order())

	skip, take := req.Skip(), req.Take()
	total := 0
	page := make([]*card.Card, 0, min(take, 64))
	for i, c := range cards {
		if i > 0 && i%s.yieldEvery == 0 {
			cfg.yield()
			if err := ctx.Err(); err != nil {
				return result.Page{}, aborted(err)
			}
		}
		if !f.Match(c) {
			continue
		}
		if total >= skip && total-skip < take {
			page = append(page, c)
		}
		total++
	}
	if err := ctx.Err(); err != nil {
		return result.Page{}, aborted(err)
	}
	return result.New(total, page), nil
}

// Suggest returns up to limit card names fuzzily matching prefix, best first.
func (s *Store) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if err := s.Wait(ctx); err != nil {
		return nil, err
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || limit <= 0 {
		return []string{}, nil
	}
	cards := s.snap.Load().cards
	matches := fuzzy.FindFrom(prefix, nameSource(cards))
	out := make([]string, 0, min(limit, len(matches)))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, cards[m.Index].Name)
	}
	return out, nil
}

func aborted(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrAborted, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "found"
	case errors.Is(err, domain.ErrAborted):
		return "aborted"
	default:
		return "error"
	}
}
