package extract

import (
	"fmt"
	"strconv"
	"time"

	"github.com/edp-labs/extract-go/internal/domain"
)

// Batch is one bounded chunk of rows, processed and persisted as a unit.
type Batch struct {
	Columns []string
	Rows    [][]any
}

func (b Batch) Len() int { return len(b.Rows) }

// Encoder serializes chunks of one table into the destination format.
// Implementations keep whatever per-table state the format needs (CSV
// header emission, parquet schema pinning); one Encoder serves exactly
// one table for the life of one attempt.
type Encoder interface {
	EncodeChunk(chunk int, batch Batch) ([]byte, error)
}

func newEncoder(table string, format domain.Format) Encoder {
	if format == domain.FormatParquet {
		return newParquetEncoder(table)
	}
	return &csvEncoder{table: table}
}

// columnKind is the scalar type lattice shared by both encoders.
type columnKind int

const (
	kindNull columnKind = iota
	kindBool
	kindInt
	kindFloat
	kindString
	kindBytes
	kindTime
)

func (k columnKind) String() string {
	switch k {
	case kindBool:
		return "bool"
	case kindInt:
		return "int64"
	case kindFloat:
		return "float64"
	case kindString:
		return "string"
	case kindBytes:
		return "bytes"
	case kindTime:
		return "timestamp"
	default:
		return "null"
	}
}

// normalize collapses driver value types onto the canonical scalar set.
func normalize(v any) (any, columnKind, error) {
	switch x := v.(type) {
	case nil:
		return nil, kindNull, nil
	case bool:
		return x, kindBool, nil
	case int64:
		return x, kindInt, nil
	case int:
		return int64(x), kindInt, nil
	case int32:
		return int64(x), kindInt, nil
	case int16:
		return int64(x), kindInt, nil
	case int8:
		return int64(x), kindInt, nil
	case uint32:
		return int64(x), kindInt, nil
	case uint16:
		return int64(x), kindInt, nil
	case uint8:
		return int64(x), kindInt, nil
	case float64:
		return x, kindFloat, nil
	case float32:
		return float64(x), kindFloat, nil
	case string:
		return x, kindString, nil
	case []byte:
		return x, kindBytes, nil
	case time.Time:
		return x.UTC(), kindTime, nil
	default:
		return nil, kindNull, fmt.Errorf("unsupported value type %T", v)
	}
}

// renderScalar is the stable scalar-to-text rule shared by CSV output.
// NULL renders as the empty field.
func renderScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
