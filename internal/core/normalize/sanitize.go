package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Repair removes bytes/runes that have no place in a text corpus:
// - invalid UTF-8 bytes
// - NUL and other C0 controls except '\n', '\r', '\t'
// - DEL and C1 controls U+0080..U+009F
// - format characters (Cf) such as ZWSP, ZWJ and BOM
// Fast path returns s unchanged when nothing needs cleaning.
func Repair(s string) string {
	if s == "" {
		return s
	}

	// Fast path: find the first offending position
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if drop(r, size) {
			break
		}
		i += size
	}
	if i == len(s) {
		return s
	}

	// Slow path: keep the clean prefix, filter the rest
	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(s[:i])
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !drop(r, size) {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

func drop(r rune, size int) bool {
	switch {
	case r == utf8.RuneError && size == 1:
		return true
	case r == '\n' || r == '\r' || r == '\t':
		return false
	case r < 0x20 || r == 0x7F:
		return true
	case r >= 0x80 && r <= 0x9F:
		return true
	case r >= 0x80 && unicode.Is(unicode.Cf, r):
		return true
	}
	return false
}
