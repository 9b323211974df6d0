package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is a whitespace-delimited chunk of text. Text keeps attached punctuation
// ("num.", "(art."); Core is Text without leading/trailing punctuation or symbols and
// is what stopword matching and length filtering look at.
type Token struct {
	Text string
	Core string
}

// Len returns the rune length of the token core
func (t Token) Len() int { return utf8.RuneCountInString(t.Core) }

// Tokenize splits s on Unicode whitespace. Empty input yields nil.
func Tokenize(s string) []Token {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	if len(fields) == 0 {
		return nil
	}
	out := make([]Token, len(fields))
	for i, f := range fields {
		out[i] = Token{Text: f, Core: strings.TrimFunc(f, isBoundary)}
	}
	return out
}

// Join rejoins token texts with single spaces
func Join(toks []Token) string {
	switch len(toks) {
	case 0:
		return ""
	case 1:
		return toks[0].Text
	}
	n := len(toks) - 1
	for _, t := range toks {
		n += len(t.Text)
	}
	var b strings.Builder
	b.Grow(n)
	for i, t := range toks {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

// isBoundary reports whether r is trimmed from token edges: punctuation and symbols
// (periods, commas, quotes, parentheses, guillemets, section and degree signs)
func isBoundary(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
