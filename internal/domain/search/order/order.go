package order

import (
	"cmp"
	"strings"

	"github.com/kailas-cloud/cardex/internal/domain/card"
)

// Key is the card attribute a search is sorted by.
type Key string

// Sort key constants.
const (
	// Name is the catalog's natural order.
	Name      Key = "name"
	CMC       Key = "cmc"
	Power     Key = "power"
	Toughness Key = "toughness"
	Type      Key = "type"
	ID        Key = "id"
)

// IsValid checks if the key is one of the supported values.
func (k Key) IsValid() bool {
	switch k {
	case Name, CMC, Power, Toughness, Type, ID:
		return true
	}
	return false
}

// Direction is the sort order.
type Direction string

// Sort direction constants.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// IsValid checks if the direction is asc or desc.
func (d Direction) IsValid() bool {
	return d == Asc || d == Desc
}

// IsNatural reports whether key and dir describe the order the catalog is
// stored in, so no re-sort is needed.
func IsNatural(k Key, d Direction) bool {
	return k == Name && d == Asc
}

// Compare orders a and b by key in direction d. Equal keys compare as 0.
// Cards without the stat sort last in both directions.
func Compare(a, b *card.Card, k Key, d Direction) int {
	var c int
	switch k {
	case CMC:
		c = cmp.Compare(a.CMC, b.CMC)
	case Power:
		if n, ok := compareNil(a.Power, b.Power); ok {
			return n
		}
		c = cmp.Compare(*a.Power, *b.Power)
	case Toughness:
		if n, ok := compareNil(a.Toughness, b.Toughness); ok {
			return n
		}
		c = cmp.Compare(*a.Toughness, *b.Toughness)
	case Type:
		c = strings.Compare(a.Type, b.Type)
	case ID:
		c = strings.Compare(a.ID, b.ID)
	default:
		c = strings.Compare(a.Name, b.Name)
	}
	if d == Desc {
		return -c
	}
	return c
}

// compareNil orders nil stats after present ones. ok is false when both are set.
func compareNil(a, b *float64) (int, bool) {
	switch {
	case a == nil && b == nil:
		return 0, true
	case a == nil:
		return 1, true
	case b == nil:
		return -1, true
	}
	return 0, false
}
