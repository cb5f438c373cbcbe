package extract

import (
	"bytes"

	"github.com/edp-labs/extract-go/internal/domain"
	"github.com/parquet-go/parquet-go"
)

// parquetEncoder writes one self-describing parquet file per chunk, one
// row group each. Column types are inferred from the first chunk and
// pinned for the life of the table; a column that is entirely NULL in
// the first chunk is typed as string.
type parquetEncoder struct {
	table  string
	pinned map[string]columnKind
	schema *parquet.Schema
}

func newParquetEncoder(table string) *parquetEncoder {
	return &parquetEncoder{table: table}
}

func (e *parquetEncoder) EncodeChunk(chunk int, batch Batch) ([]byte, error) {
	rows, err := e.normalizeRows(batch)
	if err != nil {
		return nil, err
	}
	if e.schema == nil {
		e.schema = e.buildSchema(batch.Columns)
	}

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[map[string]any](&buf, e.schema)
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return nil, &domain.SerializationError{Table: e.table, Column: "", Reason: err.Error()}
		}
	}
	if err := w.Close(); err != nil {
		return nil, &domain.SerializationError{Table: e.table, Column: "", Reason: err.Error()}
	}
	return buf.Bytes(), nil
}

// normalizeRows converts driver values to the canonical scalar set and
// enforces the pinned column types. The first chunk establishes the pin.
func (e *parquetEncoder) normalizeRows(batch Batch) ([]map[string]any, error) {
	pinning := e.pinned == nil
	if pinning {
		e.pinned = make(map[string]columnKind, len(batch.Columns))
	}

	rows := make([]map[string]any, 0, len(batch.Rows))
	for _, row := range batch.Rows {
		out := make(map[string]any, len(batch.Columns))
		for i, v := range row {
			column := batch.Columns[i]
			value, k, err := normalize(v)
			if err != nil {
				return nil, &domain.SerializationError{Table: e.table, Column: column, Reason: err.Error()}
			}
			if k == kindNull {
				continue
			}
			pinnedKind, ok := e.pinned[column]
			switch {
			case !ok && pinning:
				e.pinned[column] = k
			case !ok || pinnedKind != k:
				want := pinnedKind
				if !ok {
					want = kindString
				}
				return nil, &domain.SchemaMismatchError{
					Table:  e.table,
					Column: column,
					Want:   want.String(),
					Got:    k.String(),
				}
			}
			out[column] = value
		}
		rows = append(rows, out)
	}

	if pinning {
		// Columns that never carried a value in the first chunk default
		// to string so the schema stays total.
		for _, column := range batch.Columns {
			if _, ok := e.pinned[column]; !ok {
				e.pinned[column] = kindString
			}
		}
	}
	return rows, nil
}

func (e *parquetEncoder) buildSchema(columns []string) *parquet.Schema {
	group := make(parquet.Group, len(columns))
	for _, column := range columns {
		group[column] = parquet.Optional(nodeFor(e.pinned[column]))
	}
	return parquet.NewSchema(e.table, group)
}

func nodeFor(k columnKind) parquet.Node {
	switch k {
	case kindBool:
		return parquet.Leaf(parquet.BooleanType)
	case kindInt:
		return parquet.Int(64)
	case kindFloat:
		return parquet.Leaf(parquet.DoubleType)
	case kindBytes:
		return parquet.Leaf(parquet.ByteArrayType)
	case kindTime:
		return parquet.Timestamp(parquet.Microsecond)
	default:
		return parquet.String()
	}
}

var _ Encoder = (*parquetEncoder)(nil)
