// Package pgsource reads administrative acts from a Postgres query through pgxpool.
// Columns map by name: the text column, the optional id column, and every other
// non-NULL column as metadata.
package pgsource

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/loader"
	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/config"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultQuery selects every column of the actos table
const DefaultQuery = "SELECT * FROM actos ORDER BY 1"

// Config configures the pool and the query
type Config struct {
	URL      string
	MaxConns int32
	Query    string
	Args     []any
	Fields   loader.Fields
	SlowMs   int
}

// ConfigFromEnv reads URL (required), MAX_CONNS, QUERY, TEXT_FIELD, ID_FIELD and SLOW_MS under c's prefix
func ConfigFromEnv(c config.Conf) Config {
	return Config{
		URL:      c.MustURL("URL").String(),
		MaxConns: int32(c.MayInt("MAX_CONNS", 4)),
		Query:    c.MayString("QUERY", DefaultQuery),
		Fields: loader.Fields{
			Text: c.MayString("TEXT_FIELD", ""),
			ID:   c.MayString("ID_FIELD", ""),
		},
		SlowMs: c.MayInt("SLOW_MS", 0),
	}
}

// Querier is the part of pgxpool.Pool the source needs
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Source runs one query per Open and yields each row as an entry
type Source struct {
	q      Querier
	pool   *pgxpool.Pool
	query  string
	args   []any
	fields loader.Fields
	slow   time.Duration
	log    *logger.Logger
}

var newPool = pgxpool.NewWithConfig

// Open builds a pool from cfg. The pool connects lazily; an unreachable server
// surfaces as SourceNotFound on the first load.
func Open(ctx context.Context, cfg Config) (*Source, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, perr.WithField(perr.Wrap(err, perr.ErrorCodeInvalidConfig, "invalid postgres url"), "url")
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, perr.FromPostgres(err, "opening postgres pool")
	}
	s := New(pool, cfg.Query, cfg.Fields, cfg.Args...)
	s.pool = pool
	if cfg.SlowMs > 0 {
		s.slow = time.Duration(cfg.SlowMs) * time.Millisecond
	}
	return s, nil
}

// New wraps an existing querier; an empty query means DefaultQuery
func New(q Querier, query string, f loader.Fields, args ...any) *Source {
	if strings.TrimSpace(query) == "" {
		query = DefaultQuery
	}
	return &Source{
		q:      q,
		query:  query,
		args:   args,
		fields: f,
		log:    logger.Named("pgsource"),
	}
}

// WithLogger replaces the component logger
func (s *Source) WithLogger(l *logger.Logger) *Source {
	if l != nil {
		s.log = l
	}
	return s
}

// Close releases the pool opened by Open; nil and New-built sources are safe
func (s *Source) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Name is the compacted query
func (s *Source) Name() string { return "postgres: " + compact(s.query) }

// Open runs the query
func (s *Source) Open(ctx context.Context) (loader.Reader, error) {
	start := time.Now()
	rows, err := s.q.Query(ctx, s.query, s.args...)
	if err != nil {
		return nil, perr.AttachFieldFromPg(perr.FromPostgres(err, "querying source"))
	}
	cols := make([]string, 0, len(rows.FieldDescriptions()))
	for _, fd := range rows.FieldDescriptions() {
		cols = append(cols, fd.Name)
	}
	return &rowReader{src: s, rows: rows, cols: cols, start: start}, nil
}

type rowReader struct {
	src   *Source
	rows  pgx.Rows
	cols  []string
	n     int
	start time.Time
	done  bool
}

func (r *rowReader) Next() (loader.RawEntry, error) {
	if r.done {
		return loader.RawEntry{}, io.EOF
	}
	if !r.rows.Next() {
		r.done = true
		if err := r.rows.Err(); err != nil {
			return loader.RawEntry{}, perr.FromPostgresf(err, "reading row %d", r.n+1)
		}
		return loader.RawEntry{}, io.EOF
	}
	r.n++
	ref := fmt.Sprintf("row %d", r.n)
	vals, err := r.rows.Values()
	if err != nil {
		return loader.RawEntry{}, perr.WithField(perr.Wrap(err, perr.ErrorCodeMalformedRecord, "undecodable row"), ref)
	}

	m := make(map[string]any, len(vals))
	for i, v := range vals {
		if i >= len(r.cols) {
			break
		}
		m[r.cols[i]] = plain(v)
	}
	e := loader.FromMap(ref, m, r.src.fields)
	for k, v := range e.Metadata {
		if v == nil {
			delete(e.Metadata, k)
		}
	}
	return e, nil
}

func (r *rowReader) Close() error {
	r.rows.Close()
	elapsed := time.Since(r.start)
	ev := r.src.log.Debug()
	if r.src.slow > 0 && elapsed >= r.src.slow {
		ev = r.src.log.Warn().Bool("slow", true)
	}
	ev.Float64("elapsed_ms", float64(elapsed.Microseconds())/1000.0).
		Int("rows", r.n).
		Str("sql", compact(r.src.query)).
		Msg("pg query")
	return nil
}

// compact folds runs of whitespace into single spaces
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
