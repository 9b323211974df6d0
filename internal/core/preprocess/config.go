package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/config"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"

	"gopkg.in/yaml.v3"
)

// Config selects the normalization steps. It is a plain value: the Preprocessor
// keeps its own copy, so later edits by the caller have no effect on it.
type Config struct {
	Lowercase       bool     `json:"lowercase"`
	StripAccents    bool     `json:"strip_accents"`
	RemoveStopwords bool     `json:"remove_stopwords"`
	Stopwords       []string `json:"stopword_set" validate:"dive,nonblank"`
	MinTokenLength  int      `json:"min_token_length" validate:"gte=0"`
	// Workers bounds ProcessBatch parallelism; 0 means GOMAXPROCS
	Workers int `json:"workers" validate:"gte=0"`
}

// DefaultConfig returns lowercase and accent stripping on, everything else off
func DefaultConfig() Config {
	return Config{
		Lowercase:    true,
		StripAccents: true,
	}
}

// clone copies the stopword slice so the result shares nothing with c
func (c Config) clone() Config {
	c.Stopwords = slices.Clone(c.Stopwords)
	return c
}

// fileConfig mirrors Config for decoding; pointers tell "absent" from "false/0"
// and stopwords stay untyped so non-string entries can be reported
type fileConfig struct {
	Lowercase       *bool  `yaml:"lowercase"`
	StripAccents    *bool  `yaml:"strip_accents"`
	RemoveStopwords *bool  `yaml:"remove_stopwords"`
	Stopwords       []any  `yaml:"stopword_set"`
	StopwordPreset  string `yaml:"stopword_preset"`
	MinTokenLength  *int   `yaml:"min_token_length"`
	Workers         *int   `yaml:"workers"`
}

// ParseConfig decodes a YAML or JSON document over DefaultConfig.
// Unknown keys, non-string stopword entries and unknown presets fail with InvalidConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, perr.Wrap(err, perr.ErrorCodeInvalidConfig, "invalid preprocessing config")
	}

	if fc.Lowercase != nil {
		cfg.Lowercase = *fc.Lowercase
	}
	if fc.StripAccents != nil {
		cfg.StripAccents = *fc.StripAccents
	}
	if fc.RemoveStopwords != nil {
		cfg.RemoveStopwords = *fc.RemoveStopwords
	}
	if fc.MinTokenLength != nil {
		cfg.MinTokenLength = *fc.MinTokenLength
	}
	if fc.Workers != nil {
		cfg.Workers = *fc.Workers
	}

	for i, w := range fc.Stopwords {
		s, ok := w.(string)
		if !ok {
			return Config{}, perr.WithField(
				perr.InvalidConfigf("stopword entries must be strings, got %s", describe(w)),
				fmt.Sprintf("stopword_set[%d]", i),
			)
		}
		cfg.Stopwords = append(cfg.Stopwords, s)
	}

	preset, ok := presetStopwords(fc.StopwordPreset)
	if !ok {
		return Config{}, perr.WithField(perr.InvalidConfigf("unknown stopword preset %q", fc.StopwordPreset), "stopword_preset")
	}
	cfg.Stopwords = append(cfg.Stopwords, preset...)

	return cfg, nil
}

// ConfigFromEnv reads the options under c's prefix:
// LOWERCASE, STRIP_ACCENTS, REMOVE_STOPWORDS, STOPWORDS (csv), STOPWORD_PRESET,
// MIN_TOKEN_LENGTH, WORKERS
func ConfigFromEnv(c config.Conf) (Config, error) {
	def := DefaultConfig()
	cfg := Config{
		Lowercase:       c.MayBool("LOWERCASE", def.Lowercase),
		StripAccents:    c.MayBool("STRIP_ACCENTS", def.StripAccents),
		RemoveStopwords: c.MayBool("REMOVE_STOPWORDS", def.RemoveStopwords),
		Stopwords:       c.MayCSV("STOPWORDS", nil),
		MinTokenLength:  c.MayInt("MIN_TOKEN_LENGTH", def.MinTokenLength),
		Workers:         c.MayInt("WORKERS", def.Workers),
	}
	name := c.MayString("STOPWORD_PRESET", "")
	preset, ok := presetStopwords(name)
	if !ok {
		return Config{}, perr.WithField(perr.InvalidConfigf("unknown stopword preset %q", name), "stopword_preset")
	}
	cfg.Stopwords = append(cfg.Stopwords, preset...)
	return cfg, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case int, int64, uint64, float64:
		return "number"
	case bool:
		return "bool"
	case map[string]any:
		return "mapping"
	case []any:
		return "sequence"
	default:
		return fmt.Sprintf("%T", v)
	}
}
