package loader

import (
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/cardex/internal/domain/protocol"
)

// Event is one progress notification of a load cycle.
type Event struct {
	Phase   protocol.Phase
	Current int
	Total   int
}

// ChunkError records a chunk that could not be fetched or read.
type ChunkError struct {
	Index int
	Err   error
}

func (e ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e ChunkError) Unwrap() error { return e.Err }

// Report summarizes one load cycle.
type Report struct {
	// Offline is set when the remote manifest was unreachable and the
	// locally accepted manifest was used instead.
	Offline     bool
	ManifestErr error
	// PersistErr is set when the accepted manifest could not be saved.
	PersistErr error

	Fetched int
	Cached  int
	Deleted int
	Failed  []ChunkError

	Chunks     int
	Cards      int
	Rejected   int
	Duplicates int
	Duration   time.Duration
}

// Warning aggregates every non-fatal problem of the cycle, or nil.
func (r Report) Warning() error {
	var errs []error
	if r.ManifestErr != nil {
		errs = append(errs, fmt.Errorf("manifest: %w", r.ManifestErr))
	}
	if r.PersistErr != nil {
		errs = append(errs, r.PersistErr)
	}
	for _, f := range r.Failed {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}
