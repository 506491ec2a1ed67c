package filter

import (
	"github.com/kailas-cloud/cardex/internal/domain/card"
	"github.com/kailas-cloud/cardex/internal/domain/search/query"
)

type binding struct {
	field Field
	terms []string
}

// Filter is a compiled query predicate.
type Filter struct {
	bindings []binding
	unknown  []string
}

// Compile binds q to the schema. Fields whose markers do not appear in q
// impose no constraint; query fields no schema alias claims are ignored and
// reported by Unknown.
func Compile(s Schema, q query.Query) *Filter {
	f := &Filter{}
	claimed := make(map[string]bool)
	for _, field := range s {
		var terms []string
		for _, alias := range field.aliases {
			claimed[alias] = true
			terms = append(terms, q.Terms(alias)...)
		}
		if len(terms) > 0 {
			f.bindings = append(f.bindings, binding{field: field, terms: terms})
		}
	}
	for _, name := range q.Fields() {
		if !claimed[name] {
			f.unknown = append(f.unknown, name)
		}
	}
	return f
}

// Match reports whether c satisfies every bound field, in schema order.
func (f *Filter) Match(c *card.Card) bool {
	for _, b := range f.bindings {
		if !b.field.match(c, b.terms) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the filter accepts every card.
func (f *Filter) IsEmpty() bool { return len(f.bindings) == 0 }

// Unknown returns the query fields that no schema alias claims.
func (f *Filter) Unknown() []string { return f.unknown }
