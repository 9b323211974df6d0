// Package config reads pipeline settings from environment variables.
//
// Conf values are cheap namespaced views: config.New().Prefix("ACTOS_PG_") reads
// ACTOS_PG_URL for key "URL". May* accessors fall back to a default (and log a
// warning when the value does not parse); Must* accessors and MayEnum panic on
// bad input so misconfiguration fails at startup.
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/logger"
)

// Conf is a namespaced view over environment variables
type Conf struct{ prefix string }

// New creates a root Conf (no prefix)
func New() Conf { return Conf{} }

// Prefix creates a child Conf with an additional prefix, e.g. c.Prefix("LOADER_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// Key is the fully-qualified variable name for k
func (c Conf) Key(k string) string { return c.prefix + k }

func (c Conf) lookup(key string) string { return strings.TrimSpace(os.Getenv(c.Key(key))) }

// Has reports whether key is set to a non-blank value
func (c Conf) Has(key string) bool { return c.lookup(key) != "" }

// parsed reads key through parse; blank means def, a parse failure logs and means def
func parsed[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.Key(key)).Str("value", s).Interface("default", def).Msg("unparseable setting; using default")
		return def
	}
	return v
}

// MustString panics if key is missing or blank
func (c Conf) MustString(key string) string {
	v := c.lookup(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.Key(key)).Msg("missing required env")
	}
	return v
}

// MustURL panics unless key holds an absolute URL (postgres DSNs included)
func (c Conf) MustURL(key string) *url.URL {
	s := c.MustString(key)
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		logger.Get().Panic().Str("key", c.Key(key)).Msg("invalid absolute URL")
	}
	return u
}

// MayString returns the value or def
func (c Conf) MayString(key, def string) string {
	return parsed(c, key, def, func(s string) (string, error) { return s, nil })
}

// MayInt returns the value or def
func (c Conf) MayInt(key string, def int) int {
	return parsed(c, key, def, strconv.Atoi)
}

// MayUint64 returns the value or def; used for seeds
func (c Conf) MayUint64(key string, def uint64) uint64 {
	return parsed(c, key, def, func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) })
}

// MayBool returns the value or def
func (c Conf) MayBool(key string, def bool) bool {
	return parsed(c, key, def, strconv.ParseBool)
}

// MayCSV splits a comma-separated value, dropping blank items; def when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for _, p := range strings.Split(c.lookup(key), ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayFloats parses a comma-separated float list such as split ratios "0.8,0.1,0.1".
// One bad element discards the whole list in favour of def.
func (c Conf) MayFloats(key string, def []float64) []float64 {
	parts := c.MayCSV(key, nil)
	if len(parts) == 0 {
		return def
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			logger.Get().Warn().Str("key", c.Key(key)).Str("value", p).Floats64("default", def).Msg("unparseable float list; using default")
			return def
		}
		out[i] = v
	}
	return out
}

// MayEnum returns the allowed spelling matching the value (case-insensitive), def when blank.
// Any other value panics.
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.lookup(key)
	if v == "" {
		return def
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	logger.Get().Panic().Str("key", c.Key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
