// Package match implements the per-field predicates of the card query language.
//
// Every matcher takes the record's field value and the query terms for that
// field. A record passes only if every term passes; no terms means no
// constraint. A leading "!" negates a term.
package match

import (
	"strings"

	"github.com/kailas-cloud/cardex/internal/domain/card"
)

// negation splits a term into its negation flag and needle.
func negation(term string) (neg bool, needle string) {
	if strings.HasPrefix(term, "!") {
		return true, term[1:]
	}
	return false, term
}

// String is case-insensitive substring containment.
func String(value string, terms []string) bool {
	lower := strings.ToLower(value)
	for _, term := range terms {
		neg, needle := negation(term)
		if needle == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(needle)) == neg {
			return false
		}
	}
	return true
}

// ExactString is case-insensitive equality.
func ExactString(value string, terms []string) bool {
	for _, term := range terms {
		neg, needle := negation(term)
		if needle == "" {
			continue
		}
		if strings.EqualFold(value, needle) == neg {
			return false
		}
	}
	return true
}

// Array passes a term when any element contains it. A negated term passes
// when no element contains it.
func Array(values []string, terms []string) bool {
	for _, term := range terms {
		neg, needle := negation(term)
		if needle == "" {
			continue
		}
		found := false
		for _, v := range values {
			if String(v, []string{needle}) {
				found = true
				break
			}
		}
		if found == neg {
			return false
		}
	}
	return true
}

// ArrayExact passes a term when some element equals it, ignoring case.
// A negated term passes when no element equals it.
func ArrayExact(values []string, terms []string) bool {
	for _, term := range terms {
		neg, needle := negation(term)
		if needle == "" {
			continue
		}
		found := false
		for _, v := range values {
			if strings.EqualFold(v, needle) {
				found = true
				break
			}
		}
		if found == neg {
			return false
		}
	}
	return true
}

// Color expands every term into single color letters, keeping the term's
// negation, and requires each of them via ArrayExact. Characters outside
// WUBRG are ignored.
func Color(identity []string, terms []string) bool {
	expanded := make([]string, 0, len(terms)*2)
	for _, term := range terms {
		neg, body := negation(term)
		prefix := ""
		if neg {
			prefix = "!"
		}
		for _, r := range strings.ToUpper(body) {
			if card.IsColor(string(r)) {
				expanded = append(expanded, prefix+string(r))
			}
		}
	}
	return ArrayExact(identity, expanded)
}

// CommanderColor passes when the identity is a subset of the colors named
// across all terms.
func CommanderColor(identity []string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	requested := make(map[rune]bool, len(card.Colors))
	for _, term := range terms {
		_, body := negation(term)
		for _, r := range strings.ToUpper(body) {
			requested[r] = true
		}
	}
	excluded := make([]string, 0, len(card.Colors))
	for _, r := range card.Colors {
		if !requested[r] {
			excluded = append(excluded, "!"+string(r))
		}
	}
	return ArrayExact(identity, excluded)
}
