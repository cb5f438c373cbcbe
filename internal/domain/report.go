package domain

import "time"

// TableStatus is the terminal state of one table's extraction.
type TableStatus string

const (
	StatusSucceeded TableStatus = "success"
	StatusFailed    TableStatus = "failed"
	StatusRetried   TableStatus = "retried-then-succeeded"
)

// ExtractionResult is the outcome of one table. Exactly one is produced
// per TableSpec, whatever happened.
type ExtractionResult struct {
	Table         string      `json:"table"`
	Status        TableStatus `json:"status"`
	RowsWritten   int64       `json:"rows_written"`
	ChunksWritten int         `json:"chunks_written"`
	AttemptsUsed  int         `json:"attempts_used"`
	DurationMS    int64       `json:"duration_ms"`
	Error         string      `json:"error,omitempty"`
}

// Succeeded reports whether the table reached a successful terminal state.
func (r ExtractionResult) Succeeded() bool {
	return r.Status == StatusSucceeded || r.Status == StatusRetried
}

// JobReport aggregates the outcome of a full job run, one entry per
// table in TableSpec order.
type JobReport struct {
	RunID            string             `json:"run_id"`
	StartedAt        time.Time          `json:"started_at"`
	FinishedAt       time.Time          `json:"finished_at"`
	ProcessedTables  int                `json:"processed_tables"`
	SuccessfulTables int                `json:"successful_tables"`
	FailedTables     int                `json:"failed_tables"`
	Results          []ExtractionResult `json:"results"`
}

// Summarize recomputes the aggregate counters from the per-table results.
func (r *JobReport) Summarize() {
	r.ProcessedTables = len(r.Results)
	r.SuccessfulTables = 0
	r.FailedTables = 0
	for _, res := range r.Results {
		if res.Succeeded() {
			r.SuccessfulTables++
		} else {
			r.FailedTables++
		}
	}
}
