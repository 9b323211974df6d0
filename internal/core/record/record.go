// Package record defines the administrative act record shared by every pipeline stage
package record

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"

	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"
)

// Kind identifies which variant a metadata Value holds
type Kind uint8

const (
	// KindString is a text value
	KindString Kind = iota + 1
	// KindNumber is a float64 value
	KindNumber
	// KindBool is a boolean value
	KindBool
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is a primitive metadata value: string, number or bool.
// The zero Value is invalid and never stored in a Record.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
}

// StringValue builds a string Value
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// NumberValue builds a number Value
func NumberValue(n float64) Value { return Value{kind: KindNumber, n: n} }

// BoolValue builds a bool Value
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// ValueOf converts a decoded primitive (string, bool, any int/float, json.Number) into a Value
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		if x.kind == 0 {
			return Value{}, perr.Malformedf("invalid metadata value")
		}
		return x, nil
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case float64:
		return number(x)
	case float32:
		return number(float64(x))
	case int:
		return NumberValue(float64(x)), nil
	case int8:
		return NumberValue(float64(x)), nil
	case int16:
		return NumberValue(float64(x)), nil
	case int32:
		return NumberValue(float64(x)), nil
	case int64:
		return NumberValue(float64(x)), nil
	case uint:
		return NumberValue(float64(x)), nil
	case uint8:
		return NumberValue(float64(x)), nil
	case uint16:
		return NumberValue(float64(x)), nil
	case uint32:
		return NumberValue(float64(x)), nil
	case uint64:
		return NumberValue(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, perr.Wrapf(err, perr.ErrorCodeMalformedRecord, "invalid number %q", x.String())
		}
		return number(f)
	case nil:
		return Value{}, perr.Malformedf("null metadata value")
	default:
		return Value{}, perr.Malformedf("unsupported metadata value type %T", v)
	}
}

func number(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, perr.Malformedf("non-finite metadata number")
	}
	return NumberValue(f), nil
}

// Kind returns the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds one of the three variants
func (v Value) IsValid() bool { return v.kind != 0 }

// Str returns the string payload and whether v is a string
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Float returns the number payload and whether v is a number
func (v Value) Float() (float64, bool) { return v.n, v.kind == KindNumber }

// Bool returns the bool payload and whether v is a bool
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// String renders v for grouping and display; numbers use the shortest exact form
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Any returns the payload as a plain Go value (string, float64 or bool)
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.n
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// MarshalJSON encodes the payload as its natural JSON type
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == 0 {
		return nil, fmt.Errorf("record: cannot marshal invalid value")
	}
	return json.Marshal(v.Any())
}

// Metadata maps field names (fecha, categoria, autoridad, ...) to primitive values
type Metadata map[string]Value

// MetadataFrom converts a decoded map, rejecting non-primitive values
func MetadataFrom(in map[string]any) (Metadata, error) {
	if len(in) == 0 {
		return Metadata{}, nil
	}
	out := make(Metadata, len(in))
	for k, raw := range in {
		v, err := ValueOf(raw)
		if err != nil {
			return nil, perr.WithField(err, k)
		}
		out[k] = v
	}
	return out, nil
}

// Get returns the value for key
func (m Metadata) Get(key string) (Value, bool) {
	v, ok := m[key]
	return v, ok
}

// Record is one administrative act. Text is the original body and is never rewritten;
// Processed stays nil until the preprocessor fills it in.
type Record struct {
	ID        string
	Text      string
	Metadata  Metadata
	Processed *string
}

// IsProcessed reports whether the preprocessor has populated the record
func (r Record) IsProcessed() bool { return r.Processed != nil }

// ProcessedText returns the processed text, or "" when absent
func (r Record) ProcessedText() string {
	if r.Processed == nil {
		return ""
	}
	return *r.Processed
}

// WithProcessed returns a copy of r carrying the given processed text
func (r Record) WithProcessed(p string) Record {
	c := r.Clone()
	c.Processed = &p
	return c
}

// Clone returns a deep copy; the metadata map and processed text are not shared
func (r Record) Clone() Record {
	c := r
	if r.Metadata != nil {
		c.Metadata = maps.Clone(r.Metadata)
	}
	if r.Processed != nil {
		p := *r.Processed
		c.Processed = &p
	}
	return c
}
