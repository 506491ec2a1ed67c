package catalog

import (
	"slices"
	"sync"
	"time"

	"github.com/kailas-cloud/cardex/internal/domain/card"
	"github.com/kailas-cloud/cardex/internal/domain/search/order"
)

type sortSpec struct {
	key order.Key
	dir order.Direction
}

// snapshot is one immutable catalog version. cards is name-ordered; re-sorted
// orders are computed on first use and cached for the snapshot's lifetime.
type snapshot struct {
	cards    []*card.Card
	loadedAt time.Time

	mu     sync.Mutex
	orders map[sortSpec][]*card.Card
}

func newSnapshot(cards []*card.Card) *snapshot {
	return &snapshot{
		cards:    cards,
		loadedAt: time.Now(),
		orders:   make(map[sortSpec][]*card.Card),
	}
}

func (s *snapshot) ordered(k order.Key, d order.Direction) []*card.Card {
	if order.IsNatural(k, d) {
		return s.cards
	}
	spec := sortSpec{key: k, dir: d}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.orders[spec]; ok {
		return cached
	}
	sorted := slices.Clone(s.cards)
	slices.SortStableFunc(sorted, func(a, b *card.Card) int {
		return order.Compare(a, b, k, d)
	})
	s.orders[spec] = sorted
	return sorted
}

// nameSource adapts the snapshot to fuzzy.Source.
type nameSource []*card.Card

func (n nameSource) String(i int) string { return n[i].Name }
func (n nameSource) Len() int            { return len(n) }
