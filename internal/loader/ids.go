package loader

import (
	"encoding/json"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/core/record"
	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"

	"github.com/google/uuid"
)

// IDStrategy picks how entries without an identifier get one
type IDStrategy string

const (
	// IDSequential uses prefix + zero-based position in the source. Depends on load order.
	IDSequential IDStrategy = "sequential"
	// IDContentHash uses a UUIDv5 over text and metadata. Stable across reloads of a changed source.
	IDContentHash IDStrategy = "content_hash"
)

// DefaultIDPrefix prefixes sequential identifiers
const DefaultIDPrefix = "acto-"

// contentNS namespaces content-hash identifiers
var contentNS = uuid.NewSHA1(uuid.NameSpaceOID, []byte("actos-administrativos/record"))

// contentID hashes text and metadata in key order; equal content yields equal ids
func contentID(text string, md record.Metadata) string {
	var b strings.Builder
	b.WriteString(text)
	for _, k := range slices.Sorted(maps.Keys(md)) {
		v := md[k]
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v.Kind().String())
		b.WriteByte(':')
		b.WriteString(v.String())
	}
	return uuid.NewSHA1(contentNS, []byte(b.String())).String()
}

// explicitID renders a source-supplied identifier. ok=false means none was supplied.
// Integral numbers render in decimal; anything else that is not a string is malformed.
func explicitID(v any) (id string, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return "", false, nil
	case string:
		x = strings.TrimSpace(x)
		return x, x != "", nil
	case int:
		return strconv.Itoa(x), true, nil
	case int32:
		return strconv.FormatInt(int64(x), 10), true, nil
	case int64:
		return strconv.FormatInt(x, 10), true, nil
	case uint64:
		return strconv.FormatUint(x, 10), true, nil
	case float64:
		return floatID(x, strconv.FormatFloat(x, 'g', -1, 64))
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true, nil
		}
		f, err := x.Float64()
		if err != nil {
			return "", false, perr.Malformedf("identifier %s is not a number", x.String())
		}
		return floatID(f, x.String())
	default:
		return "", false, perr.Malformedf("unsupported identifier type %T", v)
	}
}

// floatID accepts integral floats within the exact float64 integer range
func floatID(f float64, src string) (string, bool, error) {
	if math.Trunc(f) != f || math.IsInf(f, 0) || math.Abs(f) > 1<<53 {
		return "", false, perr.Malformedf("identifier %s is not an integer", src)
	}
	return strconv.FormatInt(int64(f), 10), true, nil
}
