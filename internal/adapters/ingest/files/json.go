package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/loader"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
)

type jsonSource struct {
	path   string
	fields loader.Fields
}

// JSON reads a document holding an array of objects or a single object.
// Array elements are decoded one at a time; an element that is not an object is
// a malformed entry, broken syntax aborts the load.
func JSON(path string, f loader.Fields) loader.Source {
	return &jsonSource{path: path, fields: f}
}

func (s *jsonSource) Name() string { return s.path }

func (s *jsonSource) Open(context.Context) (loader.Reader, error) {
	fr, err := openFile(s.path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(fr)
	dec.UseNumber()
	return &jsonReader{fr: fr, dec: dec, name: displayName(s.path), fields: s.fields}, nil
}

type jsonReader struct {
	fr     io.Closer
	dec    *json.Decoder
	name   string
	fields loader.Fields

	started bool
	done    bool
	idx     int
}

func (r *jsonReader) corrupt(err error) error {
	return perr.Wrapf(err, perr.ErrorCodeUnknown, "%s: corrupt json document", r.name)
}

func (r *jsonReader) Next() (loader.RawEntry, error) {
	if r.done {
		return loader.RawEntry{}, io.EOF
	}
	if !r.started {
		r.started = true
		tok, err := r.dec.Token()
		if errors.Is(err, io.EOF) {
			r.done = true
			return loader.RawEntry{}, io.EOF
		}
		if err != nil {
			return loader.RawEntry{}, r.corrupt(err)
		}
		switch tok {
		case json.Delim('['):
		case json.Delim('{'):
			// a single object is one entry
			m, err := r.objectBody()
			if err != nil {
				return loader.RawEntry{}, r.corrupt(err)
			}
			r.done = true
			return loader.FromMap(r.name, m, r.fields), nil
		default:
			return loader.RawEntry{}, r.corrupt(fmt.Errorf("expected array or object, got %v", tok))
		}
	}

	if !r.dec.More() {
		if _, err := r.dec.Token(); err != nil { // closing ]
			return loader.RawEntry{}, r.corrupt(err)
		}
		r.done = true
		return loader.RawEntry{}, io.EOF
	}

	ref := fmt.Sprintf("%s[%d]", r.name, r.idx)
	r.idx++
	var v any
	if err := r.dec.Decode(&v); err != nil {
		return loader.RawEntry{}, r.corrupt(err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return loader.RawEntry{}, perr.WithField(perr.Malformedf("expected a json object, got %s", jsonKind(v)), ref)
	}
	return loader.FromMap(ref, m, r.fields), nil
}

// objectBody decodes the members of an object whose opening brace was consumed
func (r *jsonReader) objectBody() (map[string]any, error) {
	m := map[string]any{}
	for r.dec.More() {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var v any
		if err := r.dec.Decode(&v); err != nil {
			return nil, err
		}
		m[key] = v
	}
	if _, err := r.dec.Token(); err != nil { // closing }
		return nil, err
	}
	return m, nil
}

func (r *jsonReader) Close() error { return r.fr.Close() }
