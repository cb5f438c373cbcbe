package extract

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/edp-labs/extract-go/internal/domain"
	"github.com/edp-labs/extract-go/internal/storage/objectstore"
	"github.com/google/uuid"
)

// Orchestrator runs a whole job: one supervised extraction per table,
// bounded by the configured worker count, results assembled in TableSpec
// order. Tables are independent; a failed table never aborts its
// siblings.
type Orchestrator struct {
	logger     *slog.Logger
	source     Querier
	store      objectstore.Store
	supervisor *Supervisor
}

func NewOrchestrator(logger *slog.Logger, source Querier, store objectstore.Store) *Orchestrator {
	return &Orchestrator{
		logger:     logger,
		source:     source,
		store:      store,
		supervisor: NewSupervisor(logger),
	}
}

// Run executes every table in the spec and returns the job report. The
// orchestrator itself never retries; retry policy lives in the
// supervisor.
func (o *Orchestrator) Run(ctx context.Context, spec domain.JobSpec) domain.JobReport {
	report := domain.JobReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	o.logger.Info("job started", "run_id", report.RunID, "tables", len(spec.Tables), "workers", spec.Settings.Workers)

	workers := spec.Settings.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]domain.ExtractionResult, len(spec.Tables))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, table := range spec.Tables {
		wg.Add(1)
		go func(i int, table domain.TableSpec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			eff := table.Effective(spec.Settings)
			sink := NewObjectSink(o.store, table.Name, table.Output)
			results[i] = o.supervisor.Run(ctx, table.Name, eff, func(ctx context.Context) (int64, int, error) {
				stats, err := runPipeline(ctx, o.source, sink, table, eff.BatchSize)
				return stats.rows, stats.chunks, err
			})
		}(i, table)
	}
	wg.Wait()

	report.Results = results
	report.FinishedAt = time.Now().UTC()
	report.Summarize()
	o.logger.Info("job finished",
		"run_id", report.RunID,
		"processed", report.ProcessedTables,
		"succeeded", report.SuccessfulTables,
		"failed", report.FailedTables)
	return report
}
