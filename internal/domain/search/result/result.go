package result

import "github.com/kailas-cloud/cardex/internal/domain/card"

// Page is one page of search matches.
type Page struct {
	total int
	cards []*card.Card
}

// New creates a search result page.
func New(total int, cards []*card.Card) Page {
	return Page{total: total, cards: cards}
}

// Total returns the number of matches regardless of pagination.
func (p *Page) Total() int { return p.total }

// Cards returns the matches on this page, in sort order.
func (p *Page) Cards() []*card.Card { return p.cards }
