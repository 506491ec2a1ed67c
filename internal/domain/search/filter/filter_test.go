package filter

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/cardex/internal/domain/card"
	"github.com/kailas-cloud/cardex/internal/domain/search/query"
)

func floatPtr(f float64) *float64 { return &f }

var (
	bolt = &card.Card{
		ID: "1", Name: "Lightning Bolt", Type: "Instant", ManaCost: "{R}", CMC: 1,
		OracleText:    "Lightning Bolt deals 3 damage to any target.",
		Set:           []string{"LEA", "M10"},
		ColorIdentity: []string{"R"},
		Legalities:    []string{"modern", "legacy"},
	}
	bears = &card.Card{
		ID: "2", Name: "Grizzly Bears", Type: "Creature - Bear", ManaCost: "{1}{G}", CMC: 2,
		Set:           []string{"LEA"},
		ColorIdentity: []string{"G"},
		Legalities:    []string{"legacy"},
		Power:         floatPtr(2), Toughness: floatPtr(2),
	}
	charm = &card.Card{
		ID: "3", Name: "Azorius Charm", Type: "Instant", ManaCost: "{W}{U}", CMC: 2,
		Set:           []string{"RTR"},
		ColorIdentity: []string{"W", "U"},
		Legalities:    []string{"modern"},
	}
)

func matching(t *testing.T, q string) []string {
	t.Helper()
	f := Compile(DefaultSchema(), query.Parse(q))
	var names []string
	for _, c := range []*card.Card{bolt, bears, charm} {
		if f.Match(c) {
			names = append(names, c.Name)
		}
	}
	return names
}

func TestCompile_DefaultSchema(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"", "Lightning Bolt,Grizzly Bears,Azorius Charm"},
		{"bolt", "Lightning Bolt"},
		{"!bolt", "Grizzly Bears,Azorius Charm"},
		{"t:instant", "Lightning Bolt,Azorius Charm"},
		{"t:instant c:w", "Azorius Charm"},
		{"commander:wu", "Azorius Charm"},
		{"cmd:r", "Lightning Bolt"},
		{"cmc>=2", "Grizzly Bears,Azorius Charm"},
		{"pow:2", "Grizzly Bears"},
		{"pow>=0", "Grizzly Bears"},
		{"f:modern", "Lightning Bolt,Azorius Charm"},
		{"s:lea", "Lightning Bolt,Grizzly Bears"},
		{"m:wu", "Azorius Charm"},
		{"m:1g", "Grizzly Bears"},
		{`o:"3 damage"`, "Lightning Bolt"},
		{`exact:"grizzly bears"`, "Grizzly Bears"},
		{"exact:grizzly", ""},
		{"mv:1 o:damage", "Lightning Bolt"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := strings.Join(matching(t, tt.query), ",")
			if got != tt.want {
				t.Errorf("query %q matched %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestCompile_AliasesCombineTerms(t *testing.T) {
	// Commander terms from different aliases form one requested color set.
	got := strings.Join(matching(t, "commander:w cmd:u"), ",")
	if got != "Azorius Charm" {
		t.Errorf("matched %q", got)
	}
}

func TestCompile_UnknownFieldsIgnored(t *testing.T) {
	f := Compile(DefaultSchema(), query.Parse("bolt rarity:rare"))
	if u := f.Unknown(); len(u) != 1 || u[0] != "rarity" {
		t.Errorf("Unknown() = %v", u)
	}
	if !f.Match(bolt) {
		t.Error("unknown field should not constrain the match")
	}
}

func TestCompile_Empty(t *testing.T) {
	if !Compile(DefaultSchema(), query.Parse("")).IsEmpty() {
		t.Error("empty query should compile to an empty filter")
	}
	if Compile(DefaultSchema(), query.Parse("t:goblin")).IsEmpty() {
		t.Error("expected bindings")
	}
}

func TestCompile_ShortCircuitsInSchemaOrder(t *testing.T) {
	var calls []string
	first, err := NewField("name", []string{"a"},
		func(c *card.Card) string { calls = append(calls, "a"); return c.Name },
		func(string, []string) bool { return false })
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewField("type", []string{"b"},
		func(c *card.Card) string { calls = append(calls, "b"); return c.Type },
		func(string, []string) bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewSchema(first, second)
	if err != nil {
		t.Fatal(err)
	}

	if Compile(s, query.Parse("b:x a:y")).Match(bolt) {
		t.Fatal("expected no match")
	}
	if len(calls) != 1 || calls[0] != "a" {
		t.Errorf("calls = %v, want [a]", calls)
	}
}

func TestNewField_Validation(t *testing.T) {
	get := func(c *card.Card) string { return c.Name }
	tests := []struct {
		name      string
		attribute string
		aliases   []string
		errSubstr string
	}{
		{"no attribute", "", []string{"n"}, "attribute is required"},
		{"no aliases", "name", nil, "at least one alias"},
		{"blank alias", "name", []string{" "}, "empty alias"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewField(tt.attribute, tt.aliases, get, func(string, []string) bool { return true })
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("error = %q, want substring %q", err, tt.errSubstr)
			}
		})
	}
}

func TestNewField_NormalizesAliases(t *testing.T) {
	f, err := NewField("name", []string{" Name "}, func(c *card.Card) string { return c.Name },
		func(string, []string) bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	if f.Aliases()[0] != "name" || f.Attribute() != "name" {
		t.Errorf("field = %v %v", f.Attribute(), f.Aliases())
	}
}

func TestNewSchema_DuplicateAlias(t *testing.T) {
	get := func(c *card.Card) string { return c.Name }
	ok := func(string, []string) bool { return true }
	a, _ := NewField("name", []string{"n"}, get, ok)
	b, _ := NewField("type", []string{"n"}, get, ok)
	if _, err := NewSchema(a, b); err == nil {
		t.Fatal("expected duplicate alias error")
	}
}
