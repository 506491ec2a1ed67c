package card

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/cardex/internal/domain"
)

func TestUnmarshal_NumericAndNonNumericStats(t *testing.T) {
	data := []byte(`[
		{"id":"a","name":"Grizzly Bears","cmc":2,"power":2,"toughness":"2"},
		{"id":"b","name":"Tarmogoyf","cmc":2,"power":"*","toughness":"1+*"},
		{"id":"c","name":"Lightning Bolt","cmc":1}
	]`)

	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}

	if cards[0].Power == nil || *cards[0].Power != 2 {
		t.Errorf("expected power 2, got %v", cards[0].Power)
	}
	if cards[0].Toughness == nil || *cards[0].Toughness != 2 {
		t.Errorf("expected numeric string toughness to parse, got %v", cards[0].Toughness)
	}
	if cards[1].Power != nil || cards[1].Toughness != nil {
		t.Errorf("non-numeric stats must decode to nil, got %v/%v", cards[1].Power, cards[1].Toughness)
	}
	if cards[2].Power != nil {
		t.Errorf("absent power must be nil, got %v", *cards[2].Power)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		card    Card
		wantErr bool
	}{
		{"valid", Card{ID: "x", CMC: 3, ColorIdentity: []string{"W", "u"}}, false},
		{"missing id", Card{CMC: 1}, true},
		{"negative cmc", Card{ID: "x", CMC: -1}, true},
		{"bad color", Card{ID: "x", ColorIdentity: []string{"P"}}, true},
		{"multi-letter color", Card{ID: "x", ColorIdentity: []string{"WU"}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.card.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidCard) {
				t.Errorf("expected ErrInvalidCard, got %v", err)
			}
		})
	}
}

func TestImageURL_Fallback(t *testing.T) {
	c := Card{
		Set:            []string{"lea", "m10"},
		ImageURLsBySet: map[string]string{"m10": "https://img/m10.jpg"},
	}
	if got := c.ImageURL("m10"); got != "https://img/m10.jpg" {
		t.Errorf("ImageURL(m10) = %q", got)
	}
	if got := c.ImageURL("zzz"); got != "https://img/m10.jpg" {
		t.Errorf("ImageURL fallback = %q", got)
	}
	if got := (&Card{}).ImageURL("m10"); got != "" {
		t.Errorf("expected empty url, got %q", got)
	}
}

func TestDecodeList(t *testing.T) {
	cards, err := DecodeList([]byte(`[{"id":"a","name":"Opt","cmc":1,"power":null}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].Name != "Opt" || cards[0].Power != nil {
		t.Errorf("DecodeList() = %+v", cards)
	}

	if _, err := DecodeList([]byte(`{"id":"a"}`)); err == nil {
		t.Error("expected error for non-array document")
	}
}
