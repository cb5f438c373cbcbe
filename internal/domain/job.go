package domain

import (
	"fmt"
	"time"
)

// Format identifies the serialization contract for a table's output objects.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatParquet:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format: %q", s)
	}
}

// Extension returns the object key suffix for the format.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type written alongside uploaded chunks.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/octet-stream"
}

// OutputSpec names the destination of a table's extraction.
type OutputSpec struct {
	Bucket string
	Prefix string
	Format Format
}

// TableSpec is one source query plus its destination. The override fields
// shadow the job-level settings for this table only; nil means inherit.
type TableSpec struct {
	Name   string
	Query  string
	Output OutputSpec

	BatchSize     *int
	Timeout       *time.Duration
	RetryAttempts *int
}

// Backoff tunes the delay between retry attempts. The delay grows by
// Multiplier per attempt and never exceeds MaxDelay.
type Backoff struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// Delay returns the backoff before retry attempt n (n >= 1 is the first
// retry). The result is non-decreasing in n and bounded by MaxDelay.
func (b Backoff) Delay(n int) time.Duration {
	d := b.InitialDelay
	for i := 1; i < n; i++ {
		d = time.Duration(float64(d) * b.Multiplier)
		if d >= b.MaxDelay {
			return b.MaxDelay
		}
	}
	if d > b.MaxDelay {
		return b.MaxDelay
	}
	return d
}

// Settings are the job-level defaults applied to every table.
type Settings struct {
	BatchSize     int
	Timeout       time.Duration
	RetryAttempts int
	Workers       int
	Backoff       Backoff
}

// EffectiveSettings is the per-table merge of job settings and table
// overrides, resolved once at load time. Runtime code never consults the
// job-level Settings again.
type EffectiveSettings struct {
	BatchSize     int
	Timeout       time.Duration
	RetryAttempts int
	Backoff       Backoff
}

// Effective merges the job settings with the table's overrides.
func (t TableSpec) Effective(s Settings) EffectiveSettings {
	eff := EffectiveSettings{
		BatchSize:     s.BatchSize,
		Timeout:       s.Timeout,
		RetryAttempts: s.RetryAttempts,
		Backoff:       s.Backoff,
	}
	if t.BatchSize != nil {
		eff.BatchSize = *t.BatchSize
	}
	if t.Timeout != nil {
		eff.Timeout = *t.Timeout
	}
	if t.RetryAttempts != nil {
		eff.RetryAttempts = *t.RetryAttempts
	}
	return eff
}

// JobSpec is the validated, immutable description of one extraction job.
// Table order is execution (and report) order.
type JobSpec struct {
	Tables   []TableSpec
	Settings Settings
}
