package preprocess

import (
	_ "embed"
	"strings"
)

//go:embed stopwords_es.txt
var embeddedES string

// StopwordPresetES names the embedded Spanish stopword list
const StopwordPresetES = "es"

// SpanishStopwords returns a fresh copy of the embedded Spanish stopword list
func SpanishStopwords() []string {
	lines := strings.Split(embeddedES, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		out = append(out, l)
	}
	return out
}

// presetStopwords resolves a preset name; "" yields nil
func presetStopwords(name string) ([]string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return nil, true
	case StopwordPresetES, "spanish":
		return SpanishStopwords(), true
	default:
		return nil, false
	}
}
