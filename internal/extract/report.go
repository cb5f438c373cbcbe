package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/edp-labs/extract-go/internal/domain"
	"github.com/edp-labs/extract-go/internal/storage/objectstore"
)

// RenderReport serializes the job report for the caller.
func RenderReport(report domain.JobReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// UploadReport persists the rendered report next to the extracted data.
func UploadReport(ctx context.Context, store objectstore.Store, bucket, key string, report domain.JobReport) error {
	payload, err := RenderReport(report)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := store.Put(ctx, bucket, key, bytes.NewReader(payload), int64(len(payload)), "application/json"); err != nil {
		return fmt.Errorf("upload report %s/%s: %w", bucket, key, err)
	}
	return nil
}
