package extract

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/edp-labs/extract-go/internal/domain"
	"github.com/parquet-go/parquet-go"
)

func orderBatch(rows [][]any) Batch {
	return Batch{Columns: []string{"id", "customer", "total", "note"}, Rows: rows}
}

func TestCSVHeaderOnlyInChunkZero(t *testing.T) {
	enc := newEncoder("orders", domain.FormatCSV)
	batch := orderBatch([][]any{
		{int64(1), "alice", 1.5, nil},
		{int64(2), "bob", 3.0, []byte("gift")},
	})

	chunk0, err := enc.EncodeChunk(0, batch)
	if err != nil {
		t.Fatalf("EncodeChunk(0) err=%v", err)
	}
	lines := strings.Split(strings.TrimRight(string(chunk0), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("chunk 0 lines=%d, want 3", len(lines))
	}
	if lines[0] != "id,customer,total,note" {
		t.Fatalf("header=%q", lines[0])
	}
	if lines[1] != "1,alice,1.5," {
		t.Fatalf("row 1=%q", lines[1])
	}
	if lines[2] != "2,bob,3,gift" {
		t.Fatalf("row 2=%q", lines[2])
	}

	chunk1, err := enc.EncodeChunk(1, orderBatch([][]any{{int64(3), "carol", 0.5, nil}}))
	if err != nil {
		t.Fatalf("EncodeChunk(1) err=%v", err)
	}
	if strings.Contains(string(chunk1), "id,customer") {
		t.Fatalf("chunk 1 repeats header: %q", chunk1)
	}
}

func TestCSVTimeRendering(t *testing.T) {
	enc := newEncoder("events", domain.FormatCSV)
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	payload, err := enc.EncodeChunk(0, Batch{
		Columns: []string{"at", "ok"},
		Rows:    [][]any{{ts, true}},
	})
	if err != nil {
		t.Fatalf("EncodeChunk() err=%v", err)
	}
	if !strings.Contains(string(payload), "2026-03-14T09:26:53Z,true") {
		t.Fatalf("payload=%q", payload)
	}
}

func TestCSVUnsupportedValue(t *testing.T) {
	enc := newEncoder("orders", domain.FormatCSV)
	_, err := enc.EncodeChunk(0, Batch{
		Columns: []string{"payload"},
		Rows:    [][]any{{struct{ X int }{1}}},
	})
	var serErr *domain.SerializationError
	if !errors.As(err, &serErr) {
		t.Fatalf("EncodeChunk() err=%v, want SerializationError", err)
	}
	if serErr.Column != "payload" {
		t.Fatalf("SerializationError.Column=%q", serErr.Column)
	}
}

func readParquet(t *testing.T, payload []byte) *parquet.File {
	t.Helper()
	f, err := parquet.OpenFile(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		t.Fatalf("parquet.OpenFile() err=%v", err)
	}
	return f
}

func TestParquetRoundTrip(t *testing.T) {
	enc := newEncoder("orders", domain.FormatParquet)
	payload, err := enc.EncodeChunk(0, orderBatch([][]any{
		{int64(1), "alice", 1.5, nil},
		{int64(2), "bob", 3.0, []byte("gift")},
	}))
	if err != nil {
		t.Fatalf("EncodeChunk() err=%v", err)
	}

	f := readParquet(t, payload)
	if f.NumRows() != 2 {
		t.Fatalf("NumRows()=%d, want 2", f.NumRows())
	}
	if got := len(f.RowGroups()); got != 1 {
		t.Fatalf("row groups=%d, want 1", got)
	}

	fields := f.Schema().Fields()
	names := make(map[string]bool, len(fields))
	for _, field := range fields {
		names[field.Name()] = true
	}
	for _, want := range []string{"id", "customer", "total", "note"} {
		if !names[want] {
			t.Fatalf("schema missing column %q (fields=%v)", want, names)
		}
	}
}

func TestParquetSchemaPinnedAcrossChunks(t *testing.T) {
	enc := newEncoder("orders", domain.FormatParquet)
	if _, err := enc.EncodeChunk(0, orderBatch([][]any{{int64(1), "alice", 1.5, nil}})); err != nil {
		t.Fatalf("EncodeChunk(0) err=%v", err)
	}

	// note was all-NULL in chunk 0 and so pinned as string; string values
	// are accepted later, anything else is drift.
	if _, err := enc.EncodeChunk(1, orderBatch([][]any{{int64(2), "bob", 2.5, "x"}})); err != nil {
		t.Fatalf("EncodeChunk(1) err=%v", err)
	}
	_, err := enc.EncodeChunk(2, orderBatch([][]any{{int64(3), "carol", 2.5, int64(7)}}))
	var mismatch *domain.SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("EncodeChunk(2) err=%v, want SchemaMismatchError", err)
	}
	if mismatch.Column != "note" || mismatch.Want != "string" || mismatch.Got != "int64" {
		t.Fatalf("mismatch=%+v", mismatch)
	}
}

func TestParquetSchemaDriftIsFatal(t *testing.T) {
	enc := newEncoder("orders", domain.FormatParquet)
	if _, err := enc.EncodeChunk(0, orderBatch([][]any{{int64(1), "alice", 1.5, []byte("gift")}})); err != nil {
		t.Fatalf("EncodeChunk(0) err=%v", err)
	}

	// total arrives as a string in chunk 1: data-shape defect.
	_, err := enc.EncodeChunk(1, orderBatch([][]any{{int64(2), "bob", "not-a-number", []byte("x")}}))
	var mismatch *domain.SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("EncodeChunk(1) err=%v, want SchemaMismatchError", err)
	}
	if mismatch.Column != "total" {
		t.Fatalf("SchemaMismatchError.Column=%q, want total", mismatch.Column)
	}
}

func TestParquetEmptyChunkHasTotalSchema(t *testing.T) {
	enc := newEncoder("empty", domain.FormatParquet)
	payload, err := enc.EncodeChunk(0, Batch{Columns: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("EncodeChunk() err=%v", err)
	}
	f := readParquet(t, payload)
	if f.NumRows() != 0 {
		t.Fatalf("NumRows()=%d, want 0", f.NumRows())
	}
	if got := len(f.Schema().Fields()); got != 2 {
		t.Fatalf("schema fields=%d, want 2", got)
	}
}
