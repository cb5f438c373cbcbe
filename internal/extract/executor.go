// Package extract implements the extraction pipeline: a lazy row stream
// per query, a batching writer with per-format encoders, a keyed object
// sink, a retry/timeout supervisor and the job orchestrator gluing them
// together.
package extract

import (
	"context"
	"database/sql"

	"github.com/edp-labs/extract-go/internal/domain"
)

// Querier is the query-execution capability the pipeline consumes.
// *sql.DB satisfies it; tests substitute fakes.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// RowStream is a finite, single-pass sequence of rows from one query.
// It is not restartable: a retry re-issues the query through OpenStream.
type RowStream struct {
	table   string
	rows    *sql.Rows
	columns []string
}

// OpenStream issues the table's query and returns the live cursor.
func OpenStream(ctx context.Context, q Querier, table, query string) (*RowStream, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.SourceQueryError{Table: table, Err: err}
	}
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, &domain.SourceQueryError{Table: table, Err: err}
	}
	return &RowStream{table: table, rows: rows, columns: columns}, nil
}

// Columns returns the result schema's column names in query order.
func (s *RowStream) Columns() []string {
	return s.columns
}

// Next returns the next row, or ok=false at the end of the result set.
// Values are positionally aligned with Columns.
func (s *RowStream) Next() ([]any, bool, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, false, &domain.SourceQueryError{Table: s.table, Err: err}
		}
		return nil, false, nil
	}

	values := make([]any, len(s.columns))
	ptrs := make([]any, len(s.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, false, &domain.SourceQueryError{Table: s.table, Err: err}
	}

	// Drivers may reuse the backing array of []byte values between rows.
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			cp := make([]byte, len(b))
			copy(cp, b)
			values[i] = cp
		}
	}
	return values, true, nil
}

func (s *RowStream) Close() error {
	return s.rows.Close()
}
