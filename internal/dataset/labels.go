package dataset

import (
	"slices"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/core/record"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
)

// LabelEncoder maps the classes of one metadata key to dense class indices
type LabelEncoder struct {
	key     string
	classes []string
	index   map[string]int
}

// NewLabelEncoder collects the distinct classes of key across ds, sorted by ClassName.
// A dataset where no record carries the key fails with NotFound.
func NewLabelEncoder(ds *Dataset, key string) (*LabelEncoder, error) {
	counts := ds.CountBy(key)
	if len(counts) == 0 {
		return nil, perr.WithField(perr.NotFoundf("no record carries metadata key %q", key), key)
	}
	classes := make([]string, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	slices.Sort(classes)
	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return &LabelEncoder{key: key, classes: classes, index: idx}, nil
}

// Key is the metadata key being encoded
func (e *LabelEncoder) Key() string { return e.key }

// Classes returns the sorted class names
func (e *LabelEncoder) Classes() []string { return slices.Clone(e.classes) }

// Len is the number of classes
func (e *LabelEncoder) Len() int { return len(e.classes) }

// Encode returns the class index of r
func (e *LabelEncoder) Encode(r record.Record) (int, error) {
	v, ok := r.Metadata.Get(e.key)
	if !ok {
		return 0, perr.WithField(perr.NotFoundf("record %q has no %q", r.ID, e.key), r.ID)
	}
	c := ClassName(v)
	i, ok := e.index[c]
	if !ok {
		return 0, perr.WithField(perr.NotFoundf("unknown class %q for %q", c, e.key), r.ID)
	}
	return i, nil
}

// Decode returns the class name at index i
func (e *LabelEncoder) Decode(i int) (string, error) {
	if i < 0 || i >= len(e.classes) {
		return "", perr.OutOfRangef("class index %d out of range [0, %d)", i, len(e.classes))
	}
	return e.classes[i], nil
}
