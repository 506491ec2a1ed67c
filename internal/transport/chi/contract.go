package chi

import (
	"context"

	"github.com/kailas-cloud/cardex/internal/domain/card"
	"github.com/kailas-cloud/cardex/internal/domain/protocol"
	"github.com/kailas-cloud/cardex/internal/domain/search/request"
	"github.com/kailas-cloud/cardex/internal/domain/search/result"
	"github.com/kailas-cloud/cardex/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/cardex/internal/usecase/health"
	"github.com/kailas-cloud/cardex/internal/usecase/loader"
)

// Catalog is the consumer interface for the card catalog (ISP).
type Catalog interface {
	Wait(ctx context.Context) error
	Stats() catalog.Stats
	FindByName(ctx context.Context, name string) (*card.Card, error)
	Search(ctx context.Context, req request.Request, opts ...catalog.SearchOption) (result.Page, error)
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)
}

// Loader runs catalog load cycles.
type Loader interface {
	Load(ctx context.Context, progress func(loader.Event)) (loader.Report, error)
}

// Worker serves the worker protocol for one websocket connection.
type Worker interface {
	Run(ctx context.Context, in <-chan protocol.Request, out chan<- protocol.Response) error
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
