// Package dataset holds loaded records in an ordered, immutable collection with
// lookup by identifier or position and ratio-based splitting.
//
// A Dataset is a view: an ordered list of positions over a record store that
// splits and filters share. Records handed out are copies, so callers cannot
// reach the store.
package dataset

import (
	"iter"
	"strings"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/core/record"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/logger"
)

type store struct {
	recs []record.Record
}

// Dataset is an ordered view over a shared record store
type Dataset struct {
	st   *store
	pos  []int
	byID map[string]int
	log  *logger.Logger
}

// Option customizes New
type Option func(*Dataset)

// WithLogger replaces the component logger
func WithLogger(l *logger.Logger) Option {
	return func(d *Dataset) {
		if l != nil {
			d.log = l
		}
	}
}

// New copies recs into a fresh store in the given order. Two records sharing an
// identifier fail with DuplicateIdentifier.
func New(recs []record.Record, opts ...Option) (*Dataset, error) {
	st := &store{recs: make([]record.Record, len(recs))}
	pos := make([]int, len(recs))
	for i, r := range recs {
		st.recs[i] = r.Clone()
		pos[i] = i
	}
	d := &Dataset{st: st, pos: pos, log: logger.Named("dataset")}
	for _, o := range opts {
		o(d)
	}
	if err := d.index(); err != nil {
		return nil, perr.WithOp(err, "dataset.New")
	}
	return d, nil
}

func (d *Dataset) index() error {
	d.byID = make(map[string]int, len(d.pos))
	for i, p := range d.pos {
		id := d.st.recs[p].ID
		if first, dup := d.byID[id]; dup {
			return perr.WithField(perr.DuplicateIDf("identifier %q at positions %d and %d", id, first, i), id)
		}
		d.byID[id] = i
	}
	return nil
}

// view builds a dataset over the same store; positions must hold distinct ids
func (d *Dataset) view(pos []int) *Dataset {
	v := &Dataset{st: d.st, pos: pos, byID: make(map[string]int, len(pos)), log: d.log}
	for i, p := range pos {
		v.byID[d.st.recs[p].ID] = i
	}
	return v
}

// Len is the number of records
func (d *Dataset) Len() int { return len(d.pos) }

// Get returns the record with the given identifier
func (d *Dataset) Get(id string) (record.Record, error) {
	i, ok := d.byID[id]
	if !ok {
		return record.Record{}, perr.WithField(perr.NotFoundf("no record with identifier %q", id), id)
	}
	return d.st.recs[d.pos[i]].Clone(), nil
}

// Has reports whether id is present
func (d *Dataset) Has(id string) bool {
	_, ok := d.byID[id]
	return ok
}

// At returns the record at position i in [0, Len())
func (d *Dataset) At(i int) (record.Record, error) {
	if i < 0 || i >= len(d.pos) {
		return record.Record{}, perr.OutOfRangef("index %d out of range [0, %d)", i, len(d.pos))
	}
	return d.st.recs[d.pos[i]].Clone(), nil
}

// All yields position and record in dataset order
func (d *Dataset) All() iter.Seq2[int, record.Record] {
	return func(yield func(int, record.Record) bool) {
		for i, p := range d.pos {
			if !yield(i, d.st.recs[p].Clone()) {
				return
			}
		}
	}
}

// Records yields records in dataset order
func (d *Dataset) Records() iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		for _, p := range d.pos {
			if !yield(d.st.recs[p].Clone()) {
				return
			}
		}
	}
}

// IDs lists identifiers in dataset order
func (d *Dataset) IDs() []string {
	out := make([]string, len(d.pos))
	for i, p := range d.pos {
		out[i] = d.st.recs[p].ID
	}
	return out
}

// Filter keeps the records for which keep returns true, in order
func (d *Dataset) Filter(keep func(record.Record) bool) *Dataset {
	pos := make([]int, 0, len(d.pos))
	for _, p := range d.pos {
		if keep(d.st.recs[p].Clone()) {
			pos = append(pos, p)
		}
	}
	return d.view(pos)
}

// CountBy counts records per class of a metadata key (see ClassName). Records
// without the key are not counted.
func (d *Dataset) CountBy(key string) map[string]int {
	out := map[string]int{}
	for _, p := range d.pos {
		if v, ok := d.st.recs[p].Metadata.Get(key); ok {
			out[ClassName(v)]++
		}
	}
	return out
}

// ClassName names the class a metadata value belongs to. Strings are their own
// name unless they contain ':'; numbers, bools and such strings carry a
// "kind:" prefix. The string "1" and the number 1 are different classes.
func ClassName(v record.Value) string {
	if s, ok := v.Str(); ok && !strings.Contains(s, ":") {
		return s
	}
	return v.Kind().String() + ":" + v.String()
}
