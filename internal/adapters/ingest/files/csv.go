package files

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/loader"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
)

type csvSource struct {
	path   string
	fields loader.Fields
}

// CSV reads a delimited file with a header row (comma, or tab for .tsv).
// Header names match the text and id fields case-insensitively; every other
// column becomes a string metadata value keyed by its header. Empty id cells
// count as no identifier. Rows whose width differs from the header are malformed.
func CSV(path string, f loader.Fields) loader.Source {
	return &csvSource{path: path, fields: f}
}

func (s *csvSource) Name() string { return s.path }

func (s *csvSource) Open(context.Context) (loader.Reader, error) {
	fr, err := openFile(s.path)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(fr)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	if kind(s.path) == ".tsv" {
		cr.Comma = '\t'
		cr.LazyQuotes = true
	}
	return &csvReader{fr: fr, cr: cr, name: displayName(s.path), fields: s.fields}, nil
}

type csvReader struct {
	fr     io.Closer
	cr     *csv.Reader
	name   string
	fields loader.Fields

	header  []string
	textCol int
	idCol   int
}

func (r *csvReader) readHeader() error {
	h, err := r.cr.Read()
	if err != nil {
		return err
	}
	if len(h) > 0 {
		h[0] = strings.TrimPrefix(h[0], "\ufeff")
	}
	r.header = make([]string, len(h))
	idx := make(map[string]int, len(h))
	for i, name := range h {
		name = strings.TrimSpace(name)
		r.header[i] = name
		if _, dup := idx[strings.ToLower(name)]; !dup {
			idx[strings.ToLower(name)] = i
		}
	}
	col := func(name string) int {
		if i, ok := idx[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}
	f := r.fields
	textKey := f.TextKey(func(k string) bool { return col(k) >= 0 })
	if f.ID == "" {
		f.ID = loader.DefaultFields().ID
	}
	r.textCol, r.idCol = col(textKey), col(f.ID)
	return nil
}

func (r *csvReader) Next() (loader.RawEntry, error) {
	if r.header == nil {
		if err := r.readHeader(); err != nil {
			if errors.Is(err, io.EOF) {
				return loader.RawEntry{}, io.EOF
			}
			return loader.RawEntry{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "%s: unreadable header", r.name)
		}
	}

	row, err := r.cr.Read()
	if errors.Is(err, io.EOF) {
		return loader.RawEntry{}, io.EOF
	}
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return loader.RawEntry{}, perr.WithField(perr.Wrap(err, perr.ErrorCodeMalformedRecord, "invalid csv row"), fmt.Sprintf("%s:%d", r.name, pe.StartLine))
		}
		return loader.RawEntry{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "%s: read failed", r.name)
	}
	line, _ := r.cr.FieldPos(0)
	ref := fmt.Sprintf("%s:%d", r.name, line)
	if len(row) != len(r.header) {
		return loader.RawEntry{}, perr.WithField(
			perr.Malformedf("row has %d columns, header has %d", len(row), len(r.header)), ref)
	}

	e := loader.RawEntry{Ref: ref, Metadata: make(map[string]any, len(row))}
	for i, cell := range row {
		switch i {
		case r.textCol:
			e.Text = cell
		case r.idCol:
			if s := strings.TrimSpace(cell); s != "" {
				e.ID = s
			}
		default:
			e.Metadata[r.header[i]] = cell
		}
	}
	return e, nil
}

func (r *csvReader) Close() error { return r.fr.Close() }
