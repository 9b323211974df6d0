// Package files reads administrative acts from local files and directories.
//
// Supported layouts, chosen by extension (case-insensitive, optional trailing .gz):
//   - .jsonl / .ndjson: one JSON object per line, streamed
//   - .json: an array of objects or a single object
//   - .csv / .tsv: header row, one entry per row
//   - .txt: the whole file is one entry
//
// A directory is walked in lexical order and each supported file is read in turn.
package files

import (
	"bufio"
	"compress/gzip"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/loader"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
)

const gzExt = ".gz"

// opener builds a source for one file
type opener func(path string, f loader.Fields) loader.Source

var openers = map[string]opener{
	".jsonl":  func(p string, f loader.Fields) loader.Source { return JSONL(p, f) },
	".ndjson": func(p string, f loader.Fields) loader.Source { return JSONL(p, f) },
	".json":   func(p string, f loader.Fields) loader.Source { return JSON(p, f) },
	".csv":    func(p string, f loader.Fields) loader.Source { return CSV(p, f) },
	".tsv":    func(p string, f loader.Fields) loader.Source { return CSV(p, f) },
	".txt":    func(p string, _ loader.Fields) loader.Source { return Text(p) },
}

// Extensions lists the supported file extensions, sorted
func Extensions() []string {
	out := make([]string, 0, len(openers))
	for ext := range openers {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// Open resolves path to a source: a directory or a file with a supported extension.
// Missing paths and unsupported extensions fail with SourceNotFound.
func Open(path string, f loader.Fields, opts ...DirOption) (loader.Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, notFound(err, path)
	}
	if info.IsDir() {
		return Dir(path, f, opts...), nil
	}
	op, ok := openerFor(path)
	if !ok {
		return nil, perr.WithField(perr.SourceNotFoundf("unsupported file type %q", filepath.Ext(path)), path)
	}
	return op(path, f), nil
}

// kind returns the layout extension of name, ignoring a trailing .gz
func kind(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == gzExt {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(name, filepath.Ext(name))))
	}
	return ext
}

func openerFor(path string) (opener, bool) {
	op, ok := openers[kind(path)]
	return op, ok
}

// fileReader is an open file, transparently gunzipped when the name ends in .gz
type fileReader struct {
	f  *os.File
	gz *gzip.Reader
	r  io.Reader
}

func openFile(path string) (*fileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, notFound(err, path)
	}
	fr := &fileReader{f: f, r: bufio.NewReaderSize(f, 64*1024)}
	if strings.EqualFold(filepath.Ext(path), gzExt) {
		gz, err := gzip.NewReader(fr.r)
		if err != nil {
			_ = f.Close()
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "opening gzip %s", path)
		}
		fr.gz = gz
		fr.r = gz
	}
	return fr, nil
}

func (fr *fileReader) Read(p []byte) (int, error) { return fr.r.Read(p) }

func (fr *fileReader) Close() error {
	var first error
	if fr.gz != nil {
		if err := fr.gz.Close(); err != nil {
			first = err
		}
	}
	if err := fr.f.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

func notFound(err error, path string) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return perr.WithField(perr.Wrapf(err, perr.ErrorCodeSourceNotFound, "cannot open %s", path), path)
	}
	return perr.Wrapf(err, perr.ErrorCodeUnknown, "cannot open %s", path)
}

// displayName is the base name used in entry refs
func displayName(path string) string { return filepath.Base(path) }
