package files

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/loader"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
)

// MetaSourceFile is the metadata key holding the file a .txt entry came from
const MetaSourceFile = "source_file"

type textSource struct{ path string }

// Text reads a whole file as one entry identified by its base name without extension
func Text(path string) loader.Source { return &textSource{path: path} }

func (s *textSource) Name() string { return s.path }

func (s *textSource) Open(context.Context) (loader.Reader, error) {
	fr, err := openFile(s.path)
	if err != nil {
		return nil, err
	}
	return &textReader{fr: fr, path: s.path}, nil
}

type textReader struct {
	fr   *fileReader
	path string
	done bool
}

func (r *textReader) Next() (loader.RawEntry, error) {
	if r.done {
		return loader.RawEntry{}, io.EOF
	}
	r.done = true
	b, err := io.ReadAll(r.fr)
	if err != nil {
		return loader.RawEntry{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "reading %s", r.path)
	}
	base := displayName(r.path)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	if strings.EqualFold(filepath.Ext(id), ".txt") { // name.txt.gz
		id = strings.TrimSuffix(id, filepath.Ext(id))
	}
	return loader.RawEntry{
		Ref:      base,
		ID:       id,
		Text:     string(b),
		Metadata: map[string]any{MetaSourceFile: base},
	}, nil
}

func (r *textReader) Close() error { return r.fr.Close() }
