package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"csv", "parquet"} {
		if _, err := ParseFormat(s); err != nil {
			t.Fatalf("ParseFormat(%q) err=%v", s, err)
		}
	}
	if _, err := ParseFormat("avro"); err == nil {
		t.Fatalf("ParseFormat(avro) expected error")
	}
}

func TestBackoffDelayBoundedAndNonDecreasing(t *testing.T) {
	b := Backoff{InitialDelay: time.Second, Multiplier: 2, MaxDelay: 10 * time.Second}

	prev := time.Duration(0)
	for n := 1; n <= 8; n++ {
		d := b.Delay(n)
		if d < prev {
			t.Fatalf("Delay(%d)=%v decreased from %v", n, d, prev)
		}
		if d > b.MaxDelay {
			t.Fatalf("Delay(%d)=%v exceeds max %v", n, d, b.MaxDelay)
		}
		prev = d
	}
	if got := b.Delay(1); got != time.Second {
		t.Fatalf("Delay(1)=%v, want 1s", got)
	}
	if got := b.Delay(3); got != 4*time.Second {
		t.Fatalf("Delay(3)=%v, want 4s", got)
	}
	if got := b.Delay(20); got != 10*time.Second {
		t.Fatalf("Delay(20)=%v, want capped at 10s", got)
	}
}

func TestEffectiveSettingsResolution(t *testing.T) {
	job := Settings{
		BatchSize:     1000,
		Timeout:       5 * time.Minute,
		RetryAttempts: 3,
		Backoff:       Backoff{InitialDelay: time.Second, Multiplier: 2, MaxDelay: 30 * time.Second},
	}

	plain := TableSpec{Name: "orders"}
	eff := plain.Effective(job)
	if eff.BatchSize != 1000 || eff.Timeout != 5*time.Minute || eff.RetryAttempts != 3 {
		t.Fatalf("Effective() without overrides = %+v", eff)
	}

	batch := 50
	timeout := 30 * time.Second
	retries := 0
	overridden := TableSpec{
		Name:          "events",
		BatchSize:     &batch,
		Timeout:       &timeout,
		RetryAttempts: &retries,
	}
	eff = overridden.Effective(job)
	if eff.BatchSize != 50 {
		t.Fatalf("Effective().BatchSize=%d, want 50", eff.BatchSize)
	}
	if eff.Timeout != 30*time.Second {
		t.Fatalf("Effective().Timeout=%v, want 30s", eff.Timeout)
	}
	if eff.RetryAttempts != 0 {
		t.Fatalf("Effective().RetryAttempts=%d, want 0", eff.RetryAttempts)
	}
	if eff.Backoff != job.Backoff {
		t.Fatalf("Effective().Backoff=%+v, want job backoff", eff.Backoff)
	}
}

func TestTransientClassification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&SourceQueryError{Table: "t", Err: errors.New("conn reset")}, true},
		{&SinkError{Key: "k", Err: errors.New("503")}, true},
		{fmt.Errorf("attempt: %w", &SinkError{Key: "k", Err: errors.New("x")}), true},
		{context.DeadlineExceeded, true},
		{&ConfigError{Field: "tables", Reason: "empty"}, false},
		{&SchemaMismatchError{Table: "t", Column: "c", Want: "int64", Got: "string"}, false},
		{&SerializationError{Table: "t", Column: "c", Reason: "bad"}, false},
		{errors.New("unclassified"), false},
	}
	for _, tc := range cases {
		if got := Transient(tc.err); got != tc.want {
			t.Fatalf("Transient(%v)=%v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestJobReportSummarize(t *testing.T) {
	report := JobReport{Results: []ExtractionResult{
		{Table: "a", Status: StatusSucceeded},
		{Table: "b", Status: StatusRetried},
		{Table: "c", Status: StatusFailed, Error: "boom"},
	}}
	report.Summarize()

	if report.ProcessedTables != 3 {
		t.Fatalf("ProcessedTables=%d, want 3", report.ProcessedTables)
	}
	if report.SuccessfulTables != 2 {
		t.Fatalf("SuccessfulTables=%d, want 2", report.SuccessfulTables)
	}
	if report.FailedTables != 1 {
		t.Fatalf("FailedTables=%d, want 1", report.FailedTables)
	}
}
