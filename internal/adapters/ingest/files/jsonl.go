package files

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/loader"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
)

// maxLineSize caps one JSONL entry; longer lines are skipped as malformed
var maxLineSize = 32 * 1024 * 1024

type jsonlSource struct {
	path   string
	fields loader.Fields
}

// JSONL reads one JSON object per line. Blank lines are ignored; lines that are
// not a JSON object are malformed entries.
func JSONL(path string, f loader.Fields) loader.Source {
	return &jsonlSource{path: path, fields: f}
}

func (s *jsonlSource) Name() string { return s.path }

func (s *jsonlSource) Open(context.Context) (loader.Reader, error) {
	fr, err := openFile(s.path)
	if err != nil {
		return nil, err
	}
	return &jsonlReader{
		fr:     fr,
		br:     bufio.NewReaderSize(fr, 64*1024),
		max:    maxLineSize,
		name:   displayName(s.path),
		fields: s.fields,
	}, nil
}

type jsonlReader struct {
	fr     io.Closer
	br     *bufio.Reader
	buf    []byte
	max    int
	name   string
	fields loader.Fields
	line   int
}

func (r *jsonlReader) Next() (loader.RawEntry, error) {
	for {
		raw, tooLong, err := r.readLine()
		if err == io.EOF {
			return loader.RawEntry{}, io.EOF
		}
		if err != nil {
			return loader.RawEntry{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "%s: read failed after line %d", r.name, r.line)
		}
		r.line++
		ref := fmt.Sprintf("%s:%d", r.name, r.line)
		if tooLong {
			return loader.RawEntry{}, perr.WithField(perr.Malformedf("line exceeds %d bytes", r.max), ref)
		}
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		m, err := decodeObject(line)
		if err != nil {
			return loader.RawEntry{}, perr.WithField(err, ref)
		}
		return loader.FromMap(ref, m, r.fields), nil
	}
}

// readLine returns the next line without its terminator. A line longer than
// r.max is drained and reported with tooLong set; its bytes are dropped.
func (r *jsonlReader) readLine() ([]byte, bool, error) {
	r.buf = r.buf[:0]
	read, tooLong := false, false
	for {
		chunk, err := r.br.ReadSlice('\n')
		read = read || len(chunk) > 0
		chunk = bytes.TrimSuffix(chunk, []byte{'\n'})
		if !tooLong {
			if len(r.buf)+len(chunk) > r.max {
				tooLong, r.buf = true, r.buf[:0]
			} else {
				r.buf = append(r.buf, chunk...)
			}
		}
		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF && !read:
			return nil, false, io.EOF
		case err != nil && err != io.EOF:
			return nil, false, err
		}
		return r.buf, tooLong, nil
	}
}

func (r *jsonlReader) Close() error { return r.fr.Close() }

// decodeObject parses one JSON object keeping numbers exact
func decodeObject(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeMalformedRecord, "invalid json")
	}
	if dec.More() {
		return nil, perr.Malformedf("trailing data after json object")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, perr.Malformedf("expected a json object, got %s", jsonKind(v))
	}
	return m, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
