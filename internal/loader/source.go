package loader

import (
	"context"
	"fmt"
	"io"
	"maps"
	"strings"
)

// RawEntry is one undecoded entry as a source yields it.
// ID and Text keep their decoded type so the loader can reject unsupported ones;
// a nil Text means the entry has no text field.
type RawEntry struct {
	Ref      string // human readable locator, e.g. "actos.jsonl:12"
	ID       any
	Text     any
	Metadata map[string]any
}

// Reader yields entries in source order. Next returns io.EOF when exhausted.
// An error coded MalformedRecord skips that entry only; any other error aborts the load.
type Reader interface {
	Next() (RawEntry, error)
	Close() error
}

// Source opens a Reader. Unresolvable sources fail with SourceNotFound.
type Source interface {
	Name() string
	Open(ctx context.Context) (Reader, error)
}

// Fields names the text and identifier keys of map-shaped entries
type Fields struct {
	Text string
	ID   string
}

// AltTextField is accepted when the default text field is absent
const AltTextField = "texto"

// DefaultFields returns text/id
func DefaultFields() Fields { return Fields{Text: "text", ID: "id"} }

func (f Fields) withDefaults() Fields {
	d := DefaultFields()
	if strings.TrimSpace(f.Text) == "" {
		f.Text = d.Text
	}
	if strings.TrimSpace(f.ID) == "" {
		f.ID = d.ID
	}
	return f
}

// TextKey returns the key holding the text in m: the configured one, or
// AltTextField when the default is in use and absent
func (f Fields) TextKey(has func(string) bool) string {
	f = f.withDefaults()
	if !has(f.Text) && f.Text == DefaultFields().Text && has(AltTextField) {
		return AltTextField
	}
	return f.Text
}

// FromMap splits a decoded object into text, id and metadata. m is not modified.
func FromMap(ref string, m map[string]any, f Fields) RawEntry {
	f = f.withDefaults()
	textKey := f.TextKey(func(k string) bool { _, ok := m[k]; return ok })

	md := maps.Clone(m)
	if md == nil {
		md = map[string]any{}
	}
	e := RawEntry{Ref: ref, Text: md[textKey], ID: md[f.ID]}
	delete(md, textKey)
	delete(md, f.ID)
	e.Metadata = md
	return e
}

// Entries is an in-memory source over prepared entries
func Entries(name string, entries ...RawEntry) Source {
	return &sliceSource{name: name, next: func(i int) (RawEntry, bool) {
		if i >= len(entries) {
			return RawEntry{}, false
		}
		e := entries[i]
		if e.Ref == "" {
			e.Ref = fmt.Sprintf("%s[%d]", name, i)
		}
		return e, true
	}}
}

// Maps is an in-memory source over decoded objects
func Maps(name string, rows []map[string]any, f Fields) Source {
	return &sliceSource{name: name, next: func(i int) (RawEntry, bool) {
		if i >= len(rows) {
			return RawEntry{}, false
		}
		return FromMap(fmt.Sprintf("%s[%d]", name, i), rows[i], f), true
	}}
}

type sliceSource struct {
	name string
	next func(int) (RawEntry, bool)
}

func (s *sliceSource) Name() string { return s.name }

func (s *sliceSource) Open(context.Context) (Reader, error) {
	return &sliceReader{next: s.next}, nil
}

type sliceReader struct {
	next func(int) (RawEntry, bool)
	pos  int
}

func (r *sliceReader) Next() (RawEntry, error) {
	e, ok := r.next(r.pos)
	if !ok {
		return RawEntry{}, io.EOF
	}
	r.pos++
	return e, nil
}

func (r *sliceReader) Close() error { return nil }
