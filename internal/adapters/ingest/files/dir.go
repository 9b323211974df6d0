package files

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/loader"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
)

// DirOption customizes directory walking
type DirOption func(*dirSource)

// ExcludeDirs skips directories with these base names (case-insensitive)
func ExcludeDirs(names ...string) DirOption {
	return func(d *dirSource) {
		for _, n := range names {
			n = strings.ToLower(strings.Trim(n, `/\`))
			if n != "" {
				d.exclude[n] = struct{}{}
			}
		}
	}
}

// DefaultExcludedDirs are never descended into
var DefaultExcludedDirs = []string{".git", "__pycache__", "node_modules"}

type dirSource struct {
	root    string
	fields  loader.Fields
	exclude map[string]struct{}
}

// Dir reads every supported file under root, in lexical path order.
// Files with other extensions and hidden files are ignored.
func Dir(root string, f loader.Fields, opts ...DirOption) loader.Source {
	d := &dirSource{root: root, fields: f, exclude: map[string]struct{}{}}
	ExcludeDirs(DefaultExcludedDirs...)(d)
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *dirSource) Name() string { return d.root }

// files lists the supported files below root; WalkDir visits in lexical order
func (d *dirSource) files(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(d.root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := de.Name()
		if de.IsDir() {
			if path == d.root {
				return nil
			}
			if _, skip := d.exclude[strings.ToLower(name)]; skip {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !de.Type().IsRegular() {
			return nil
		}
		if _, ok := openerFor(name); ok {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, notFound(err, d.root)
	}
	return out, nil
}

func (d *dirSource) Open(ctx context.Context) (loader.Reader, error) {
	paths, err := d.files(ctx)
	if err != nil {
		return nil, err
	}
	return &dirReader{ctx: ctx, src: d, paths: paths}, nil
}

// dirReader chains the readers of each file
type dirReader struct {
	ctx    context.Context
	src    *dirSource
	paths  []string
	cur    loader.Reader
	prefix string // dir of the current file relative to root, "" at the top
}

func (r *dirReader) open() error {
	path := r.paths[0]
	r.paths = r.paths[1:]
	op, _ := openerFor(path)
	rd, err := op(path, r.src.fields).Open(r.ctx)
	if err != nil {
		return perr.WithOp(err, "files.Dir")
	}
	r.cur = rd
	r.prefix = ""
	if rel, err := filepath.Rel(r.src.root, filepath.Dir(path)); err == nil && rel != "." {
		r.prefix = filepath.ToSlash(rel) + "/"
	}
	return nil
}

func (r *dirReader) Next() (loader.RawEntry, error) {
	for {
		if r.cur == nil {
			if len(r.paths) == 0 {
				return loader.RawEntry{}, io.EOF
			}
			if err := r.open(); err != nil {
				return loader.RawEntry{}, err
			}
		}

		e, err := r.cur.Next()
		if errors.Is(err, io.EOF) {
			cerr := r.cur.Close()
			r.cur = nil
			if cerr != nil {
				return loader.RawEntry{}, perr.Wrap(cerr, perr.ErrorCodeUnknown, "closing file")
			}
			continue
		}
		if err != nil {
			if pe, ok := perr.As(err); ok && pe.Code() == perr.ErrorCodeMalformedRecord && pe.Field() != "" {
				return loader.RawEntry{}, perr.WithField(err, r.prefix+pe.Field())
			}
			return loader.RawEntry{}, err
		}
		e.Ref = r.prefix + e.Ref
		return e, nil
	}
}

func (r *dirReader) Close() error {
	if r.cur == nil {
		return nil
	}
	err := r.cur.Close()
	r.cur = nil
	return err
}
