// Package card defines the immutable card record held by the catalog.
package card

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/cardex/internal/domain"
)

// Colors is the color alphabet, in canonical WUBRG order.
const Colors = "WUBRG"

// Card is a single catalog entry. One record per distinct name: Set and
// ImageURLsBySet aggregate every printing.
type Card struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	OracleText     string            `json:"oracleText"`
	ManaCost       string            `json:"manaCost"`
	Type           string            `json:"type"`
	Set            []string          `json:"set"`
	ImageURLsBySet map[string]string `json:"imageURLsBySet,omitempty"`
	ColorIdentity  []string          `json:"colorIdentity"`
	Legalities     []string          `json:"legalities"`
	CMC            float64           `json:"cmc"`
	// Power and Toughness are nil for cards without a numeric stat ("*", "1+*", absent).
	Power     *float64 `json:"power"`
	Toughness *float64 `json:"toughness"`
}

// wireCard mirrors Card but keeps stats raw so non-numeric values decode to nil.
type wireCard struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	OracleText     string            `json:"oracleText"`
	ManaCost       string            `json:"manaCost"`
	Type           string            `json:"type"`
	Set            []string          `json:"set"`
	ImageURLsBySet map[string]string `json:"imageURLsBySet"`
	ColorIdentity  []string          `json:"colorIdentity"`
	Legalities     []string          `json:"legalities"`
	CMC            float64           `json:"cmc"`
	Power          json.RawMessage   `json:"power"`
	Toughness      json.RawMessage   `json:"toughness"`
}

// UnmarshalJSON decodes a feed record. Power/toughness accept numbers or
// numeric strings; anything else becomes nil rather than 0.
func (c *Card) UnmarshalJSON(data []byte) error {
	var w wireCard
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode card: %w", err)
	}
	*c = Card{
		ID:             w.ID,
		Name:           w.Name,
		OracleText:     w.OracleText,
		ManaCost:       w.ManaCost,
		Type:           w.Type,
		Set:            w.Set,
		ImageURLsBySet: w.ImageURLsBySet,
		ColorIdentity:  w.ColorIdentity,
		Legalities:     w.Legalities,
		CMC:            w.CMC,
		Power:          parseStat(w.Power),
		Toughness:      parseStat(w.Toughness),
	}
	return nil
}

func parseStat(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &n
}

// Validate checks the record invariants: id present, cmc >= 0, color
// identity within WUBRG.
func (c *Card) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidCard)
	}
	if c.CMC < 0 {
		return fmt.Errorf("%w: %s: cmc must be >= 0, got %v", domain.ErrInvalidCard, c.ID, c.CMC)
	}
	for _, color := range c.ColorIdentity {
		if !IsColor(color) {
			return fmt.Errorf("%w: %s: unknown color %q", domain.ErrInvalidCard, c.ID, color)
		}
	}
	return nil
}

// IsColor reports whether s is a single letter of the color alphabet (case-insensitive).
func IsColor(s string) bool {
	return len(s) == 1 && strings.Contains(Colors, strings.ToUpper(s))
}

// ImageURL returns the image for the given printing, falling back to the
// first printing that has one.
func (c *Card) ImageURL(set string) string {
	if u, ok := c.ImageURLsBySet[set]; ok {
		return u
	}
	for _, s := range c.Set {
		if u, ok := c.ImageURLsBySet[s]; ok {
			return u
		}
	}
	return ""
}

// DecodeList parses a chunk document: a JSON array of cards.
func DecodeList(data []byte) ([]Card, error) {
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("decode cards: %w", err)
	}
	return cards, nil
}
