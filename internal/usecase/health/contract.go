package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// CatalogReporter reports whether the catalog finished its first load.
type CatalogReporter interface {
	Loaded() bool
}
