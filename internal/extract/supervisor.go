package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/edp-labs/extract-go/internal/domain"
)

// Attempt runs one full pass of a table's pipeline under the given
// context and reports how much it wrote.
type Attempt func(ctx context.Context) (rows int64, chunks int, err error)

// Supervisor wraps a table's extraction in a bounded-retry,
// bounded-duration envelope. Each attempt gets a fresh deadline covering
// the whole executor-writer-sink pipeline; transient failures consume an
// attempt and back off, fatal ones terminate the table immediately.
type Supervisor struct {
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewSupervisor(logger *slog.Logger) *Supervisor {
	return &Supervisor{logger: logger, sleep: sleepContext}
}

// Run drives one table to a terminal state and produces its
// ExtractionResult. attempts_used never exceeds retry_attempts+1.
func (s *Supervisor) Run(ctx context.Context, table string, eff domain.EffectiveSettings, attempt Attempt) domain.ExtractionResult {
	start := time.Now()
	maxAttempts := eff.RetryAttempts + 1

	var lastErr error
	for n := 1; n <= maxAttempts; n++ {
		attemptCtx, cancel := context.WithTimeout(ctx, eff.Timeout)
		rows, chunks, err := attempt(attemptCtx)
		cancel()

		if err == nil {
			status := domain.StatusSucceeded
			if n > 1 {
				status = domain.StatusRetried
			}
			s.logger.Info("table extracted",
				"table", table, "rows", rows, "chunks", chunks, "attempts", n)
			return domain.ExtractionResult{
				Table:         table,
				Status:        status,
				RowsWritten:   rows,
				ChunksWritten: chunks,
				AttemptsUsed:  n,
				DurationMS:    time.Since(start).Milliseconds(),
			}
		}

		lastErr = err
		if !domain.Transient(err) {
			s.logger.Error("table extraction failed",
				"table", table, "attempt", n, "error", err)
			return s.failed(table, n, start, err)
		}
		if n == maxAttempts {
			break
		}

		delay := eff.Backoff.Delay(n)
		s.logger.Warn("attempt failed, retrying",
			"table", table, "attempt", n, "backoff", delay, "error", err)
		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			// Job-level shutdown while waiting to retry.
			return s.failed(table, n, start, lastErr)
		}
	}

	s.logger.Error("table extraction exhausted retries",
		"table", table, "attempts", maxAttempts, "error", lastErr)
	return s.failed(table, maxAttempts, start, lastErr)
}

func (s *Supervisor) failed(table string, attempts int, start time.Time, err error) domain.ExtractionResult {
	return domain.ExtractionResult{
		Table:        table,
		Status:       domain.StatusFailed,
		AttemptsUsed: attempts,
		DurationMS:   time.Since(start).Milliseconds(),
		Error:        err.Error(),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
