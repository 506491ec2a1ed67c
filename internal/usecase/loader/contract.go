package loader

import (
	"context"

	"github.com/kailas-cloud/cardex/internal/domain/card"
	domchunk "github.com/kailas-cloud/cardex/internal/domain/chunk"
	"github.com/kailas-cloud/cardex/internal/usecase/catalog"
)

// Source is the consumer interface for the remote catalog feed (ISP).
type Source interface {
	Name() string
	Manifest(ctx context.Context) (domchunk.Manifest, error)
	Chunk(ctx context.Context, c domchunk.Chunk) ([]byte, error)
}

// Cache is the consumer interface for locally persisted chunks (ISP).
type Cache interface {
	Manifest(ctx context.Context) (domchunk.Manifest, error)
	SaveManifest(ctx context.Context, m domchunk.Manifest) error
	SaveChunk(ctx context.Context, index int, payload []byte) error
	Chunk(ctx context.Context, index int) ([]card.Card, error)
	DeleteChunk(ctx context.Context, index int) error
	Indexes(ctx context.Context) ([]int, error)
}

// Catalog receives the cards of each completed cycle.
type Catalog interface {
	Replace(cards []card.Card) catalog.ReplaceResult
}
