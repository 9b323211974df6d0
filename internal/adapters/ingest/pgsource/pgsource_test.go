package pgsource

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/loader"
	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/config"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/logger"
	kit "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/testkit"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type fakeRows struct {
	cols   []string
	data   [][]any
	i      int
	err    error
	closed bool
}

func (f *fakeRows) Close()                        { f.closed = true }
func (f *fakeRows) Err() error                    { return f.err }
func (f *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(f.cols))
	for i, c := range f.cols {
		out[i] = pgconn.FieldDescription{Name: c}
	}
	return out
}
func (f *fakeRows) Next() bool {
	if f.i >= len(f.data) {
		return false
	}
	f.i++
	return true
}
func (f *fakeRows) Scan(...any) error      { return errors.New("not supported") }
func (f *fakeRows) Values() ([]any, error) { return f.data[f.i-1], nil }
func (f *fakeRows) RawValues() [][]byte    { return nil }
func (f *fakeRows) Conn() *pgx.Conn        { return nil }

type fakeQuerier struct {
	rows *fakeRows
	err  error
	sql  string
	args []any
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql, q.args = sql, args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func load(t *testing.T, src loader.Source) (loader.Result, error) {
	t.Helper()
	l, err := loader.New(loader.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("loader.New err = %v", err)
	}
	return l.Load(context.Background(), src)
}

func TestSource_RowsToRecords(t *testing.T) {
	fecha := time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)
	rows := &fakeRows{
		cols: []string{"id", "texto", "categoria", "folios", "fecha", "vigente", "nota"},
		data: [][]any{
			{int32(1), "Resolución Núm. 123", "resolucion", int16(3), fecha, true, nil},
			{nil, "Decreto 45", "decreto", int16(1), fecha.Add(90 * time.Minute), false, "anulado"},
			{int32(3), nil, "circular", int16(2), fecha, true, nil},
			{int32(4), "Acta", "acta", int16(1), fecha, true, []string{"a"}},
		},
	}
	q := &fakeQuerier{rows: rows}
	src := New(q, "SELECT *\n  FROM actos\n WHERE anio = $1", loader.Fields{}, 2020).WithLogger(logger.Nop())

	res, err := load(t, src)
	if err != nil {
		t.Fatalf("Load err = %v", err)
	}
	if q.args[0] != 2020 {
		t.Fatalf("args not forwarded: %v", q.args)
	}
	if src.Name() != "postgres: SELECT * FROM actos WHERE anio = $1" {
		t.Fatalf("name = %q", src.Name())
	}
	if !rows.closed {
		t.Fatalf("rows not closed")
	}

	if len(res.Records) != 2 || res.Records[0].ID != "1" || res.Records[1].ID != "acto-1" {
		t.Fatalf("records = %+v", res.Records)
	}
	r := res.Records[0]
	if r.Text != "Resolución Núm. 123" {
		t.Fatalf("text = %q", r.Text)
	}
	if v, _ := r.Metadata.Get("fecha"); v.String() != "2020-03-04" {
		t.Fatalf("fecha = %v", v)
	}
	if v, _ := r.Metadata.Get("folios"); v.String() != "3" {
		t.Fatalf("folios = %v", v)
	}
	if _, ok := r.Metadata.Get("nota"); ok {
		t.Fatalf("NULL metadata should be dropped")
	}
	if v, _ := res.Records[1].Metadata.Get("fecha"); v.String() != "2020-03-04T01:30:00Z" {
		t.Fatalf("timestamp = %v", v)
	}

	if res.Summary.Skipped != 2 {
		t.Fatalf("summary = %+v", res.Summary)
	}
	if sk := res.Summary.SkippedEntries[0]; sk.Ref != "row 3" || sk.ID != "3" || !strings.Contains(sk.Reason, "missing text") {
		t.Fatalf("skipped[0] = %+v", sk)
	}
	if sk := res.Summary.SkippedEntries[1]; sk.Ref != "row 4" {
		t.Fatalf("skipped[1] = %+v", sk)
	}
}

func TestSource_QueryErrors(t *testing.T) {
	undefined := &pgconn.PgError{Code: "42P01", Message: `relation "actos" does not exist`}
	_, err := load(t, New(&fakeQuerier{err: undefined}, "", loader.Fields{}).WithLogger(logger.Nop()))
	kit.MustCode(t, err, perr.ErrorCodeSourceNotFound)

	_, err = load(t, New(&fakeQuerier{err: errors.New("syntax")}, "SELEC", loader.Fields{}).WithLogger(logger.Nop()))
	kit.MustCode(t, err, perr.ErrorCodeUnknown)

	rows := &fakeRows{cols: []string{"text"}, data: [][]any{{"a"}}, err: errors.New("conn reset")}
	_, err = load(t, New(&fakeQuerier{rows: rows}, "", loader.Fields{}).WithLogger(logger.Nop()))
	if err == nil || perr.IsCode(err, perr.ErrorCodeMalformedRecord) {
		t.Fatalf("mid-stream failure should abort, got %v", err)
	}
	kit.MustContain(t, err.Error(), "conn reset")
}

func TestSource_DefaultQueryAndFields(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{cols: []string{"codigo", "cuerpo"}, data: [][]any{{"R-9", "x"}}}}
	res, err := load(t, New(q, "  ", loader.Fields{Text: "cuerpo", ID: "codigo"}).WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("Load err = %v", err)
	}
	if q.sql != DefaultQuery {
		t.Fatalf("sql = %q", q.sql)
	}
	if res.Records[0].ID != "R-9" || res.Records[0].Text != "x" {
		t.Fatalf("records = %+v", res.Records)
	}
}

func TestPlain(t *testing.T) {
	var num pgtype.Numeric
	num.Int = big.NewInt(1250)
	num.Exp = -2
	num.Valid = true

	u := [16]byte{0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1, 0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8}
	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "int2", in: int16(7), want: int64(7)},
		{name: "float4", in: float32(0.5), want: float64(0.5)},
		{name: "numeric", in: num, want: 12.5},
		{name: "null numeric", in: pgtype.Numeric{}, want: nil},
		{name: "uuid", in: u, want: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{name: "bytes", in: []byte("hola"), want: "hola"},
		{name: "string", in: "x", want: "x"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := plain(tc.in); got != tc.want {
				t.Fatalf("plain(%v) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
	if b, ok := plain([]byte{0xff}).([]byte); !ok || len(b) != 1 {
		t.Fatalf("invalid utf8 bytes should pass through")
	}
}

func TestOpen_InvalidURL(t *testing.T) {
	_, err := Open(context.Background(), Config{URL: "://bad"})
	kit.MustCode(t, err, perr.ErrorCodeInvalidConfig)
}

func TestOpen_NewPoolError(t *testing.T) {
	kit.Swap(t, &newPool, func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error) {
		return nil, &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}
	})
	_, err := Open(context.Background(), Config{URL: "postgres://u:p@h:5432/db?sslmode=disable"})
	kit.MustCode(t, err, perr.ErrorCodeSourceNotFound)
}

func TestOpen_AppliesConfig(t *testing.T) {
	fake := &pgxpool.Pool{} // zero value; never closed
	var maxConns int32
	kit.Swap(t, &newPool, func(_ context.Context, pc *pgxpool.Config) (*pgxpool.Pool, error) {
		maxConns = pc.MaxConns
		return fake, nil
	})
	s, err := Open(context.Background(), Config{URL: "postgres://u:p@h:5432/db", MaxConns: 7, SlowMs: 250, Query: "SELECT 1"})
	if err != nil {
		t.Fatalf("Open err = %v", err)
	}
	if maxConns != 7 || s.slow != 250*time.Millisecond || s.query != "SELECT 1" || s.q != Querier(fake) {
		t.Fatalf("source = %+v (max conns %d)", s, maxConns)
	}

	var nilSrc *Source
	nilSrc.Close()
	New(&fakeQuerier{}, "", loader.Fields{}).Close()
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ACTOS_PG_URL", "postgres://u:p@db:5432/actos")
	t.Setenv("ACTOS_PG_QUERY", "SELECT id, texto FROM actos")
	t.Setenv("ACTOS_PG_TEXT_FIELD", "texto")
	t.Setenv("ACTOS_PG_MAX_CONNS", "9")
	c := ConfigFromEnv(config.New().Prefix("ACTOS_PG_"))
	if c.URL != "postgres://u:p@db:5432/actos" || c.Query != "SELECT id, texto FROM actos" || c.Fields.Text != "texto" || c.MaxConns != 9 {
		t.Fatalf("config = %+v", c)
	}

	t.Setenv("ACTOS_PG_URL", "")
	kit.MustPanic(t, func() { ConfigFromEnv(config.New().Prefix("ACTOS_PG_")) })
}
