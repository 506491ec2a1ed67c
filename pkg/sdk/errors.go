package cardex

import "github.com/kailas-cloud/cardex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrCardNotFound    = domain.ErrCardNotFound
	ErrAborted         = domain.ErrAborted
	ErrNotLoaded       = domain.ErrNotLoaded
	ErrInvalidRequest  = domain.ErrInvalidRequest
	ErrFeedUnavailable = domain.ErrFeedUnavailable
)
