package match

import (
	"regexp"
	"strconv"
	"strings"
)

var numberTerm = regexp.MustCompile(`^(>=|<=|!=|==|>|<|!|=)?(-?\d+)$`)

type comparison struct {
	op    string
	value float64
}

func (c comparison) holds(v float64) bool {
	switch c.op {
	case ">":
		return v > c.value
	case ">=":
		return v >= c.value
	case "<":
		return v < c.value
	case "<=":
		return v <= c.value
	case "!", "!=":
		return v != c.value
	default:
		return v == c.value
	}
}

func parseComparison(term string) (comparison, bool) {
	m := numberTerm.FindStringSubmatch(strings.TrimSpace(term))
	if m == nil {
		return comparison{}, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return comparison{}, false
	}
	return comparison{op: m[1], value: float64(n)}, true
}

// Number compares value against terms such as ">=3", "!2" or "4".
// Malformed terms are dropped. A nil value fails every remaining term.
func Number(value *float64, terms []string) bool {
	for _, term := range terms {
		cmp, ok := parseComparison(term)
		if !ok {
			continue
		}
		if value == nil || !cmp.holds(*value) {
			return false
		}
	}
	return true
}

var manaTerm = regexp.MustCompile(`^(!)?(\d+)?([wubrgWUBRG]*)$`)

// ManaCostTerm renders a term like "2wu" as the canonical cost "{2}{W}{U}",
// keeping a leading "!". ok is false for terms of any other shape.
func ManaCostTerm(term string) (string, bool) {
	m := manaTerm.FindStringSubmatch(term)
	if m == nil || (m[2] == "" && m[3] == "") {
		return "", false
	}
	var sb strings.Builder
	sb.WriteString(m[1])
	if m[2] != "" {
		sb.WriteString("{" + m[2] + "}")
	}
	for _, r := range strings.ToUpper(m[3]) {
		sb.WriteString("{" + string(r) + "}")
	}
	return sb.String(), true
}

// ManaCost matches the full cost string exactly. Letters keep the order they
// were typed in.
func ManaCost(value string, terms []string) bool {
	costs := make([]string, 0, len(terms))
	for _, term := range terms {
		if cost, ok := ManaCostTerm(term); ok {
			costs = append(costs, cost)
		}
	}
	return ExactString(value, costs)
}
