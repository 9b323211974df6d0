// Package normalize provides the deterministic text transforms used by the preprocessor
//
// Every function here is pure and idempotent:
//   - Repair drops invalid UTF-8, control characters and invisible format characters
//   - StripAccents decomposes (NFD), removes nonspacing marks and recomposes (NFC)
//   - Lower applies Spanish lowercasing
//   - Tokenize splits on whitespace and computes each token's punctuation-free core
package normalize

import (
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// transformers are stateful, so each call borrows its own chain from a pool
var (
	stripPool = sync.Pool{
		New: func() any {
			// order matters: marks only become removable after decomposition
			return transform.Chain(
				norm.NFD,
				runes.Remove(runes.In(unicode.Mn)), // combining accents, tilde, dieresis
				norm.NFC,
			)
		},
	}
	lowerPool = sync.Pool{
		New: func() any { return cases.Lower(language.Spanish) },
	}
)

// StripAccents removes diacritics: "Resolución Núm." -> "Resolucion Num."
func StripAccents(s string) string {
	if s == "" || isASCII(s) {
		return s
	}
	tr := stripPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	stripPool.Put(tr)
	if err != nil {
		return s
	}
	return out
}

// Lower applies Spanish lowercasing. Some capitals (e.g. U+0130) lower to a letter plus a
// combining mark, so callers that strip accents must strip again afterwards.
func Lower(s string) string {
	if s == "" {
		return s
	}
	c := lowerPool.Get().(cases.Caser)
	out := c.String(s)
	c.Reset()
	lowerPool.Put(c)
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
