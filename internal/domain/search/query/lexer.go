package query

import (
	"strings"
	"unicode"
)

// TokenKind is the type of token.
type TokenKind int

const (
	// TokTerm is a search term.
	TokTerm TokenKind = iota
	// TokField is a field marker such as "o:" (stored without the terminator).
	TokField
)

func (k TokenKind) String() string {
	switch k {
	case TokTerm:
		return "Term"
	case TokField:
		return "Field"
	default:
		return "Unknown"
	}
}

// Token is a lexical token of the query language.
type Token struct {
	Kind  TokenKind
	Value string
}

// Dialect selects which characters terminate a field marker.
type Dialect int

const (
	// Standard accepts ':' as the only field-marker terminator.
	Standard Dialect = iota
	// Legacy also accepts '='.
	Legacy
)

// Tokenize splits a query into terms and field markers using the standard dialect.
func Tokenize(input string) []Token {
	return TokenizeDialect(input, Standard)
}

// TokenizeDialect splits a query into terms and field markers.
// It never fails: an unmatched quote closes at end of input.
func TokenizeDialect(input string, d Dialect) []Token {
	l := &lexer{input: []rune(input), dialect: d}
	for {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			return l.tokens
		}
		l.scanRun()
	}
}

type lexer struct {
	input   []rune
	pos     int
	dialect Dialect
	tokens  []Token
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos < len(l.input) {
		return l.input[pos]
	}
	return 0
}

// scanRun consumes one maximal run of non-whitespace (whitespace inside quotes
// is literal), splitting it at field markers.
func (l *lexer) scanRun() {
	var sb strings.Builder
	inQuote := false
	// literal is set after a comparison shorthand split: the rest of the run is the term.
	literal := false
	// bare tracks whether sb holds only unquoted letters, the shape of a shorthand field name.
	bare := true
	var prev rune

	for l.pos < len(l.input) {
		ch := l.input[l.pos]

		if ch == '"' {
			inQuote = !inQuote
			bare = false
			l.pos++
			continue
		}
		if !inQuote && unicode.IsSpace(ch) {
			break
		}

		if !inQuote && !literal && sb.Len() > 0 {
			if l.isMarker(ch, prev) {
				l.emit(TokField, strings.ToLower(sb.String()))
				sb.Reset()
				bare = true
				prev = 0
				l.pos++
				continue
			}
			if bare && l.isComparison() {
				l.emit(TokField, strings.ToLower(sb.String()))
				sb.Reset()
				literal = true
				continue
			}
		}

		if !unicode.IsLetter(ch) {
			bare = false
		}
		sb.WriteRune(ch)
		prev = ch
		l.pos++
	}

	if sb.Len() > 0 {
		l.emit(TokTerm, sb.String())
	}
}

// isMarker reports whether ch ends a field marker. In the legacy dialect '='
// completing an operator ("!=", "<=", ">=") stays part of the term.
func (l *lexer) isMarker(ch, prev rune) bool {
	if ch == ':' {
		return true
	}
	return ch == '=' && l.dialect == Legacy && !strings.ContainsRune("!<>", prev)
}

// isComparison reports whether a comparison operator starts at the cursor.
func (l *lexer) isComparison() bool {
	switch l.input[l.pos] {
	case '<', '>':
		return true
	case '!':
		return l.peek(1) == '='
	}
	return false
}

func (l *lexer) emit(kind TokenKind, value string) {
	l.tokens = append(l.tokens, Token{Kind: kind, Value: value})
}
