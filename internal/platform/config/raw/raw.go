// Package raw reads the handful of environment settings the logger needs before
// it exists. It must not import the logger; config builds on top of both.
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf is a namespaced view over environment variables (e.g. "LOG_")
type Conf struct{ prefix string }

// New returns a root Conf
func New() Conf { return Conf{} }

// Prefix returns a child Conf with p appended to the prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// Lookup returns the trimmed value and whether it is non-blank
func (c Conf) Lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(c.prefix + key))
	return v, v != ""
}

// Get returns the value or def
func (c Conf) Get(key, def string) string {
	if v, ok := c.Lookup(key); ok {
		return v
	}
	return def
}

// GetBool accepts strconv bools plus yes/no and on/off; anything else is def
func (c Conf) GetBool(key string, def bool) bool {
	v, ok := c.Lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// GetInt returns a non-negative integer or def
func (c Conf) GetInt(key string, def int) int {
	v, ok := c.Lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// GetPairs parses "k1=v1,k2=v2". Items without '=' or with an empty key are ignored.
func (c Conf) GetPairs(key string) map[string]string {
	v, ok := c.Lookup(key)
	if !ok {
		return nil
	}
	out := map[string]string{}
	for _, item := range strings.Split(v, ",") {
		k, val, found := strings.Cut(item, "=")
		k = strings.TrimSpace(k)
		if !found || k == "" {
			continue
		}
		out[k] = strings.TrimSpace(val)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
