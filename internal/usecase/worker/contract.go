package worker

import (
	"context"

	"github.com/kailas-cloud/cardex/internal/domain/card"
	"github.com/kailas-cloud/cardex/internal/domain/search/request"
	"github.com/kailas-cloud/cardex/internal/domain/search/result"
	"github.com/kailas-cloud/cardex/internal/usecase/catalog"
	"github.com/kailas-cloud/cardex/internal/usecase/loader"
)

// Catalog is the consumer interface for the card catalog (ISP).
type Catalog interface {
	Ready() <-chan struct{}
	FindByName(ctx context.Context, name string) (*card.Card, error)
	Search(ctx context.Context, req request.Request, opts ...catalog.SearchOption) (result.Page, error)
}

// Loader runs catalog load cycles.
type Loader interface {
	Load(ctx context.Context, progress func(loader.Event)) (loader.Report, error)
}
