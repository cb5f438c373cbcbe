package extract

import (
	"context"

	"github.com/edp-labs/extract-go/internal/domain"
)

type pipelineStats struct {
	rows   int64
	chunks int
}

// runPipeline is one attempt over one table: issue the query, pull rows
// in batches of at most batchSize, encode each batch and persist it
// before pulling the next. The strictly sequential pull bounds memory to
// one batch and backpressures against a slow sink. Resources opened here
// are scoped to the attempt.
func runPipeline(ctx context.Context, q Querier, sink Sink, table domain.TableSpec, batchSize int) (pipelineStats, error) {
	var stats pipelineStats

	stream, err := OpenStream(ctx, q, table.Name, table.Query)
	if err != nil {
		return stats, err
	}
	defer func() { _ = stream.Close() }()

	enc := newEncoder(table.Name, table.Output.Format)
	batch := Batch{Columns: stream.Columns()}

	flush := func() error {
		payload, err := enc.EncodeChunk(stats.chunks, batch)
		if err != nil {
			return err
		}
		if _, err := sink.PutChunk(ctx, stats.chunks, payload); err != nil {
			return err
		}
		stats.rows += int64(batch.Len())
		stats.chunks++
		batch.Rows = batch.Rows[:0]
		return nil
	}

	for {
		row, ok, err := stream.Next()
		if err != nil {
			return stats, err
		}
		if !ok {
			break
		}
		batch.Rows = append(batch.Rows, row)
		if batch.Len() == batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	// The final short batch, or a single header-only/empty chunk when the
	// query returned no rows at all.
	if batch.Len() > 0 || stats.chunks == 0 {
		if err := flush(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
