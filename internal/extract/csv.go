package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/edp-labs/extract-go/internal/domain"
)

// csvEncoder writes comma-separated chunks. The header row is emitted in
// chunk 0 only; later chunks of the same table carry bare records.
type csvEncoder struct {
	table string
}

func (e *csvEncoder) EncodeChunk(chunk int, batch Batch) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if chunk == 0 {
		if err := w.Write(batch.Columns); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	record := make([]string, len(batch.Columns))
	for _, row := range batch.Rows {
		for i, v := range row {
			value, _, err := normalize(v)
			if err != nil {
				return nil, &domain.SerializationError{
					Table:  e.table,
					Column: batch.Columns[i],
					Reason: err.Error(),
				}
			}
			record[i] = renderScalar(value)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
