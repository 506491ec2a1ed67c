package request

import (
	"fmt"

	"github.com/kailas-cloud/cardex/internal/domain"
	"github.com/kailas-cloud/cardex/internal/domain/search/order"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTake    = 60
	MaxTake        = 1000
)

// Request is a validated catalog search.
type Request struct {
	query string
	skip  int
	take  int
	key   order.Key
	dir   order.Direction
}

// New validates and normalizes search parameters.
// Defaults: take=60, sort=name, order=asc. Take is clamped to MaxTake.
// An empty query matches every card.
func New(query string, skip, take int, key order.Key, dir order.Direction) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if skip < 0 {
		return Request{}, fmt.Errorf("%w: skip must not be negative", domain.ErrInvalidRequest)
	}
	if take <= 0 {
		take = DefaultTake
	}
	if take > MaxTake {
		take = MaxTake
	}
	if key == "" {
		key = order.Name
	}
	if !key.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid sort key: %q", domain.ErrInvalidRequest, key)
	}
	if dir == "" {
		dir = order.Asc
	}
	if !dir.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid sort order: %q", domain.ErrInvalidRequest, dir)
	}

	return Request{query: query, skip: skip, take: take, key: key, dir: dir}, nil
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// Skip returns the number of matches to skip.
func (r *Request) Skip() int { return r.skip }

// Take returns the page size.
func (r *Request) Take() int { return r.take }

// Sort returns the sort key.
func (r *Request) Sort() order.Key { return r.key }

// Order returns the sort direction.
func (r *Request) Order() order.Direction { return r.dir }
