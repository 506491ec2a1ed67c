// Package query parses the card search mini-language into field-scoped terms.
//
// Grammar, informally:
//
//	query  = { term | marker term }
//	marker = name ":"            (Legacy also accepts name "=")
//	term   = [ "!" ] ( word | '"' text '"' )
//
// Shorthand comparisons such as cmc>=3 are read as cmc:>=3.
package query

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultField receives terms without a field marker.
const DefaultField = "default"

// Query maps a field name to its terms in order of appearance.
type Query map[string][]string

// Parse parses input using the standard dialect.
func Parse(input string) Query {
	return ParseDialect(input, Standard)
}

// ParseDialect parses input. A marker applies to the next term only; a
// marker without a following term is discarded.
func ParseDialect(input string, d Dialect) Query {
	q := Query{DefaultField: []string{}}
	field := DefaultField
	for _, tok := range TokenizeDialect(input, d) {
		switch tok.Kind {
		case TokField:
			field = tok.Value
		case TokTerm:
			q[field] = append(q[field], tok.Value)
			field = DefaultField
		}
	}
	return q
}

// Terms returns the terms recorded for field.
func (q Query) Terms(field string) []string {
	return q[field]
}

// Fields returns the fields that carry at least one term, default first,
// the rest sorted.
func (q Query) Fields() []string {
	fields := make([]string, 0, len(q))
	for f, terms := range q {
		if f == DefaultField || len(terms) == 0 {
			continue
		}
		fields = append(fields, f)
	}
	sort.Strings(fields)
	if len(q[DefaultField]) > 0 {
		fields = append([]string{DefaultField}, fields...)
	}
	return fields
}

// IsEmpty reports whether the query has no terms at all.
func (q Query) IsEmpty() bool {
	for _, terms := range q {
		if len(terms) > 0 {
			return false
		}
	}
	return true
}

// Stringify renders q so that Parse(Stringify(q)) yields the same
// field/term assignments.
func Stringify(q Query) string {
	var parts []string
	for _, field := range q.Fields() {
		prefix := ""
		if field != DefaultField {
			prefix = quoteIfNeeded(field) + ":"
		}
		for _, term := range q[field] {
			parts = append(parts, prefix+quoteIfNeeded(term))
		}
	}
	return strings.Join(parts, " ")
}

func quoteIfNeeded(s string) string {
	special := strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`:=<>`, r)
	})
	if special < 0 {
		return s
	}
	return `"` + s + `"`
}
