package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestString(t *testing.T) {
	tests := []struct {
		name  string
		value string
		terms []string
		want  bool
	}{
		{"contains", "Lightning Bolt", []string{"bolt"}, true},
		{"negated contains", "Lightning Bolt", []string{"!bolt"}, false},
		{"negated absent", "Lightning Bolt", []string{"!shock"}, true},
		{"case insensitive", "Lightning Bolt", []string{"LIGHT"}, true},
		{"all terms required", "Lightning Bolt", []string{"light", "helix"}, false},
		{"no terms", "anything", nil, true},
		{"bare bang", "anything", []string{"!"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.value, tt.terms))
		})
	}
}

func TestExactString(t *testing.T) {
	assert.True(t, ExactString("Lightning Bolt", []string{"lightning bolt"}))
	assert.False(t, ExactString("Lightning Bolt", []string{"bolt"}))
	assert.False(t, ExactString("Lightning Bolt", []string{"!Lightning Bolt"}))
	assert.True(t, ExactString("Lightning Bolt", []string{"!bolt"}))
}

func TestArray(t *testing.T) {
	sets := []string{"M10", "M11", "LEA"}
	assert.True(t, Array(sets, []string{"m1"}))
	assert.True(t, Array(sets, []string{"lea", "m11"}))
	assert.False(t, Array(sets, []string{"znr"}))
	assert.False(t, Array(sets, []string{"!m10"}))
	assert.True(t, Array(sets, []string{"!znr"}))
	assert.True(t, Array(nil, nil))
}

func TestArrayExact(t *testing.T) {
	formats := []string{"modern", "legacy", "vintage"}
	assert.True(t, ArrayExact(formats, []string{"Modern"}))
	assert.False(t, ArrayExact(formats, []string{"mod"}))
	assert.False(t, ArrayExact(formats, []string{"!legacy"}))
	assert.True(t, ArrayExact(formats, []string{"!standard", "vintage"}))
}

func TestColor(t *testing.T) {
	tests := []struct {
		name     string
		identity []string
		terms    []string
		want     bool
	}{
		{"both present", []string{"W", "U"}, []string{"wu"}, true},
		{"negated absent", []string{"W"}, []string{"!u"}, true},
		{"negated present", []string{"W", "U"}, []string{"!u"}, false},
		{"missing color", []string{"W"}, []string{"wu"}, false},
		{"non colors ignored", []string{"G"}, []string{"g?x"}, true},
		{"colorless passes negation", nil, []string{"!wubrg"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Color(tt.identity, tt.terms))
		})
	}
}

func TestCommanderColor(t *testing.T) {
	tests := []struct {
		name     string
		identity []string
		terms    []string
		want     bool
	}{
		{"subset", []string{"W"}, []string{"wu"}, true},
		{"outside", []string{"W", "B"}, []string{"wu"}, false},
		{"equal", []string{"W", "U"}, []string{"WU"}, true},
		{"colorless is a subset", nil, []string{"r"}, true},
		{"union across terms", []string{"W", "B"}, []string{"w", "b"}, true},
		{"no terms", []string{"G"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CommanderColor(tt.identity, tt.terms))
		})
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name  string
		value *float64
		terms []string
		want  bool
	}{
		{"greater", ptr(3), []string{">2"}, true},
		{"less or equal fails", ptr(3), []string{"<=2"}, false},
		{"nil fails", nil, []string{">0"}, false},
		{"default equality", ptr(3), []string{"3"}, true},
		{"double equals", ptr(3), []string{"==3"}, true},
		{"bang", ptr(3), []string{"!3"}, false},
		{"not equal", ptr(3), []string{"!=2"}, true},
		{"range", ptr(3), []string{">=2", "<4"}, true},
		{"malformed dropped", ptr(3), []string{">x", "3"}, true},
		{"only malformed", nil, []string{"abc"}, true},
		{"negative", ptr(-1), []string{"<0"}, true},
		{"fractional value", ptr(2.5), []string{">2", "<3"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Number(tt.value, tt.terms))
		})
	}
}

func TestManaCostTerm(t *testing.T) {
	tests := []struct {
		term string
		want string
		ok   bool
	}{
		{"2wu", "{2}{W}{U}", true},
		{"!1r", "!{1}{R}", true},
		{"gg", "{G}{G}", true},
		{"10", "{10}", true},
		{"2x", "", false},
		{"!", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, ok := ManaCostTerm(tt.term)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestManaCost(t *testing.T) {
	assert.True(t, ManaCost("{2}{W}{U}", []string{"2wu"}))
	assert.False(t, ManaCost("{2}{W}{U}", []string{"2uw"}))
	assert.False(t, ManaCost("{2}{W}{U}", []string{"!2wu"}))
	assert.True(t, ManaCost("{R}", []string{"!2wu", "r"}))
	// Malformed terms are dropped instead of failing the record.
	assert.True(t, ManaCost("{R}", []string{"r", "2q"}))
}
