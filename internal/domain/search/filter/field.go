// Package filter binds a parsed query to a schema of card fields and
// produces a single predicate over cards.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/cardex/internal/domain/card"
	"github.com/kailas-cloud/cardex/internal/domain/search/match"
)

// Field is one constraint of the query language: a card attribute, the
// field markers that address it and the matcher applied to it.
type Field struct {
	attribute string
	aliases   []string
	match     func(c *card.Card, terms []string) bool
}

// NewField validates and creates a Field reading a value of type V from a card.
func NewField[V any](attribute string, aliases []string, get func(*card.Card) V, fn func(V, []string) bool) (Field, error) {
	if attribute == "" {
		return Field{}, errors.New("field attribute is required")
	}
	if len(aliases) == 0 {
		return Field{}, fmt.Errorf("field %q: at least one alias is required", attribute)
	}
	if get == nil || fn == nil {
		return Field{}, fmt.Errorf("field %q: getter and matcher are required", attribute)
	}
	normalized := make([]string, len(aliases))
	for i, a := range aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			return Field{}, fmt.Errorf("field %q: empty alias", attribute)
		}
		normalized[i] = a
	}
	return Field{
		attribute: attribute,
		aliases:   normalized,
		match: func(c *card.Card, terms []string) bool {
			return fn(get(c), terms)
		},
	}, nil
}

// Attribute returns the card attribute the field reads.
func (f Field) Attribute() string { return f.attribute }

// Aliases returns the field markers addressing the field.
func (f Field) Aliases() []string { return f.aliases }

// Schema is the ordered list of fields understood by the query language.
type Schema []Field

// NewSchema validates that no alias is claimed by two fields.
func NewSchema(fields ...Field) (Schema, error) {
	owner := make(map[string]string)
	for _, f := range fields {
		for _, a := range f.aliases {
			if prev, ok := owner[a]; ok {
				return nil, fmt.Errorf("alias %q is used by %q and %q", a, prev, f.attribute)
			}
			owner[a] = f.attribute
		}
	}
	return Schema(fields), nil
}

// DefaultSchema returns the card query schema.
func DefaultSchema() Schema {
	s, err := NewSchema(
		mustField(NewField("name", []string{"default", "name", "n"}, cardName, match.String)),
		mustField(NewField("name", []string{"exact"}, cardName, match.ExactString)),
		mustField(NewField("oracleText", []string{"o", "oracle", "text"},
			func(c *card.Card) string { return c.OracleText }, match.String)),
		mustField(NewField("type", []string{"t", "type"},
			func(c *card.Card) string { return c.Type }, match.String)),
		mustField(NewField("set", []string{"s", "set", "e", "edition"},
			func(c *card.Card) []string { return c.Set }, match.Array)),
		mustField(NewField("colorIdentity", []string{"c", "color", "ci", "id", "identity"},
			colorIdentity, match.Color)),
		mustField(NewField("colorIdentity", []string{"commander", "cmd"},
			colorIdentity, match.CommanderColor)),
		mustField(NewField("legalities", []string{"f", "format", "legal"},
			func(c *card.Card) []string { return c.Legalities }, match.ArrayExact)),
		mustField(NewField("cmc", []string{"cmc", "mv"},
			func(c *card.Card) *float64 { return &c.CMC }, match.Number)),
		mustField(NewField("power", []string{"pow", "power"},
			func(c *card.Card) *float64 { return c.Power }, match.Number)),
		mustField(NewField("toughness", []string{"tou", "toughness"},
			func(c *card.Card) *float64 { return c.Toughness }, match.Number)),
		mustField(NewField("manaCost", []string{"m", "mana"},
			func(c *card.Card) string { return c.ManaCost }, match.ManaCost)),
	)
	if err != nil {
		panic(err)
	}
	return s
}

func cardName(c *card.Card) string       { return c.Name }
func colorIdentity(c *card.Card) []string { return c.ColorIdentity }

func mustField(f Field, err error) Field {
	if err != nil {
		panic(err)
	}
	return f
}
