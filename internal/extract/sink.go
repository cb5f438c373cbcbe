package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/edp-labs/extract-go/internal/domain"
	"github.com/edp-labs/extract-go/internal/storage/objectstore"
)

// Sink persists serialized chunks under deterministic keys. It performs
// no retries; faults propagate to the supervisor as SinkError.
type Sink interface {
	PutChunk(ctx context.Context, chunk int, payload []byte) (key string, err error)
}

// ChunkKey builds the object key for one chunk of a table. Keys are
// deterministic so re-runs overwrite instead of appending duplicates.
func ChunkKey(prefix, table string, chunk int, format domain.Format) string {
	return fmt.Sprintf("%s/%s/part-%05d.%s", prefix, table, chunk, format.Extension())
}

type objectSink struct {
	store objectstore.Store
	table string
	out   domain.OutputSpec
}

func NewObjectSink(store objectstore.Store, table string, out domain.OutputSpec) Sink {
	return &objectSink{store: store, table: table, out: out}
}

func (s *objectSink) PutChunk(ctx context.Context, chunk int, payload []byte) (string, error) {
	key := ChunkKey(s.out.Prefix, s.table, chunk, s.out.Format)
	err := s.store.Put(ctx, s.out.Bucket, key, bytes.NewReader(payload), int64(len(payload)), s.out.Format.ContentType())
	if err != nil {
		return "", &domain.SinkError{Key: key, Err: err}
	}
	return key, nil
}
