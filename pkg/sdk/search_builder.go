package cardex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/cardex/internal/domain/search/order"
	"github.com/kailas-cloud/cardex/internal/domain/search/request"
)

// SearchBuilder is a fluent builder for catalog searches.
type SearchBuilder struct {
	client *Client
	query  string
	skip   int
	take   int
	sort   SortKey
	desc   bool
}

// Skip sets how many matches to skip.
func (b *SearchBuilder) Skip(n int) *SearchBuilder {
	b.skip = n
	return b
}

// Take sets the page size. Default 60, at most 1000.
func (b *SearchBuilder) Take(n int) *SearchBuilder {
	b.take = n
	return b
}

// SortBy sets the sort key. Default: name.
func (b *SearchBuilder) SortBy(key SortKey) *SearchBuilder {
	b.sort = key
	return b
}

// Desc reverses the sort order. Cards without the sort stat stay last.
func (b *SearchBuilder) Desc() *SearchBuilder {
	b.desc = true
	return b
}

// Do runs the search. Cancelling ctx aborts the scan with ErrAborted.
func (b *SearchBuilder) Do(ctx context.Context) (page Page, err error) {
	start := time.Now()
	defer func() { b.client.obs.observe("search", start, err) }()

	dir := order.Asc
	if b.desc {
		dir = order.Desc
	}
	req, err := request.New(b.query, b.skip, b.take, order.Key(b.sort), dir)
	if err != nil {
		return Page{}, err
	}

	res, err := b.client.catalog.Search(ctx, req)
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	return Page{Total: res.Total(), Cards: res.Cards()}, nil
}
