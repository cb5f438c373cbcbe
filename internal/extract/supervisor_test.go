package extract

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/edp-labs/extract-go/internal/domain"
)

func testSettings(retries int) domain.EffectiveSettings {
	return domain.EffectiveSettings{
		BatchSize:     100,
		Timeout:       time.Second,
		RetryAttempts: retries,
		Backoff:       domain.Backoff{InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 10 * time.Millisecond},
	}
}

func newTestSupervisor() (*Supervisor, *[]time.Duration) {
	sup := NewSupervisor(slog.New(slog.DiscardHandler))
	var delays []time.Duration
	sup.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return sup, &delays
}

func TestSupervisorSucceedsFirstAttempt(t *testing.T) {
	sup, _ := newTestSupervisor()
	result := sup.Run(context.Background(), "orders", testSettings(3), func(ctx context.Context) (int64, int, error) {
		return 42, 3, nil
	})

	if result.Status != domain.StatusSucceeded {
		t.Fatalf("Status=%q", result.Status)
	}
	if result.RowsWritten != 42 || result.ChunksWritten != 3 {
		t.Fatalf("result=%+v", result)
	}
	if result.AttemptsUsed != 1 {
		t.Fatalf("AttemptsUsed=%d, want 1", result.AttemptsUsed)
	}
}

func TestSupervisorRetriesTransientThenSucceeds(t *testing.T) {
	sup, delays := newTestSupervisor()
	calls := 0
	result := sup.Run(context.Background(), "orders", testSettings(3), func(ctx context.Context) (int64, int, error) {
		calls++
		if calls < 3 {
			return 0, 0, &domain.SourceQueryError{Table: "orders", Err: errors.New("conn reset")}
		}
		return 10, 1, nil
	})

	if result.Status != domain.StatusRetried {
		t.Fatalf("Status=%q, want retried-then-succeeded", result.Status)
	}
	if result.AttemptsUsed != 3 {
		t.Fatalf("AttemptsUsed=%d, want 3", result.AttemptsUsed)
	}
	if len(*delays) != 2 {
		t.Fatalf("backoff sleeps=%d, want 2", len(*delays))
	}
	if (*delays)[1] < (*delays)[0] {
		t.Fatalf("backoff decreased: %v then %v", (*delays)[0], (*delays)[1])
	}
}

func TestSupervisorExhaustsAttempts(t *testing.T) {
	sup, delays := newTestSupervisor()
	calls := 0
	result := sup.Run(context.Background(), "orders", testSettings(2), func(ctx context.Context) (int64, int, error) {
		calls++
		return 0, 0, &domain.SourceQueryError{Table: "orders", Err: errors.New("down")}
	})

	if result.Status != domain.StatusFailed {
		t.Fatalf("Status=%q", result.Status)
	}
	if calls != 3 {
		t.Fatalf("attempts made=%d, want retry_attempts+1=3", calls)
	}
	if result.AttemptsUsed != 3 {
		t.Fatalf("AttemptsUsed=%d, want 3", result.AttemptsUsed)
	}
	if len(*delays) != 2 {
		t.Fatalf("backoff sleeps=%d, want 2 (no sleep after final attempt)", len(*delays))
	}
	if result.Error == "" {
		t.Fatalf("Error summary missing")
	}
}

func TestSupervisorFatalErrorConsumesNoRetry(t *testing.T) {
	sup, delays := newTestSupervisor()
	calls := 0
	result := sup.Run(context.Background(), "orders", testSettings(5), func(ctx context.Context) (int64, int, error) {
		calls++
		return 0, 0, &domain.SchemaMismatchError{Table: "orders", Column: "total", Want: "float64", Got: "string"}
	})

	if result.Status != domain.StatusFailed {
		t.Fatalf("Status=%q", result.Status)
	}
	if calls != 1 {
		t.Fatalf("attempts made=%d, want 1 for fatal error", calls)
	}
	if len(*delays) != 0 {
		t.Fatalf("backoff sleeps=%d, want 0", len(*delays))
	}
}

func TestSupervisorDeadlineCancelsAndRetries(t *testing.T) {
	sup, _ := newTestSupervisor()
	eff := testSettings(1)
	eff.Timeout = 30 * time.Millisecond

	start := time.Now()
	calls := 0
	result := sup.Run(context.Background(), "orders", eff, func(ctx context.Context) (int64, int, error) {
		calls++
		<-ctx.Done()
		return 0, 0, ctx.Err()
	})
	elapsed := time.Since(start)

	if result.Status != domain.StatusFailed {
		t.Fatalf("Status=%q", result.Status)
	}
	if calls != 2 {
		t.Fatalf("attempts made=%d, want 2 (deadline counts as transient)", calls)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("supervisor hung past deadlines: %v", elapsed)
	}
}

func TestSupervisorStopsWhenJobCancelled(t *testing.T) {
	sup := NewSupervisor(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	result := sup.Run(ctx, "orders", testSettings(5), func(ctx context.Context) (int64, int, error) {
		calls++
		cancel()
		return 0, 0, &domain.SinkError{Key: "k", Err: errors.New("unreachable")}
	})

	if result.Status != domain.StatusFailed {
		t.Fatalf("Status=%q", result.Status)
	}
	if calls != 1 {
		t.Fatalf("attempts made=%d, want 1 after job cancellation", calls)
	}
}
