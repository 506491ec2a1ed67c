package cardex

import (
	"time"

	"github.com/kailas-cloud/cardex/internal/domain/card"
	domchunk "github.com/kailas-cloud/cardex/internal/domain/chunk"
	"github.com/kailas-cloud/cardex/internal/domain/search/order"
	"github.com/kailas-cloud/cardex/internal/usecase/loader"
)

// Card is a catalog entry.
type Card = card.Card

// Manifest lists the chunks a feed publishes.
type Manifest = domchunk.Manifest

// Chunk is one manifest entry.
type Chunk = domchunk.Chunk

// Source is a catalog feed: a manifest plus the raw chunk documents it
// references. Implement it to load from somewhere other than the built-in
// HTTP and directory feeds.
type Source = loader.Source

// SortKey orders search results.
type SortKey string

// Sort keys.
const (
	SortName      SortKey = SortKey(order.Name)
	SortCMC       SortKey = SortKey(order.CMC)
	SortPower     SortKey = SortKey(order.Power)
	SortToughness SortKey = SortKey(order.Toughness)
	SortType      SortKey = SortKey(order.Type)
	SortID        SortKey = SortKey(order.ID)
)

// Page is one window of search results. Total counts every match.
type Page struct {
	Total int
	Cards []*Card
}

// Progress reports a load phase: "loadNetwork" while chunks are fetched,
// "loadDB" while the local copy is read.
type Progress struct {
	Phase   string
	Current int
	Total   int
}

// LoadReport summarizes a load cycle.
type LoadReport struct {
	Offline    bool // the feed was unreachable and the local copy was used
	Fetched    int
	Cached     int
	Deleted    int
	Failed     int
	Chunks     int
	Cards      int
	Rejected   int
	Duplicates int
	Duration   time.Duration
	// Warning aggregates non-fatal problems; nil when the cycle was clean.
	Warning error
}

func fromReport(r loader.Report) LoadReport {
	return LoadReport{
		Offline:    r.Offline,
		Fetched:    r.Fetched,
		Cached:     r.Cached,
		Deleted:    r.Deleted,
		Failed:     len(r.Failed),
		Chunks:     r.Chunks,
		Cards:      r.Cards,
		Rejected:   r.Rejected,
		Duplicates: r.Duplicates,
		Duration:   r.Duration,
		Warning:    r.Warning(),
	}
}
