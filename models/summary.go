package models

import "time"

// QueryOutcome records how a single query ended, with enough context to
// support a manual re-run of just the failed subset.
type QueryOutcome struct {
	Query     SearchQuery `json:"query"`
	State     string      `json:"state"` // QueryStateCompleted or QueryStateFailed
	ErrorCode string      `json:"error_code,omitempty"`
	Accepted  int         `json:"accepted"`
}

// RunSummary is the aggregate result of one orchestrator run, finalized once
// at run end.
type RunSummary struct {
	RunID string `json:"run_id"`

	QueriesProcessed int `json:"queries_processed"`
	QueriesCompleted int `json:"queries_completed"`
	QueriesFailed    int `json:"queries_failed"`

	RecordsScraped int `json:"records_scraped"` // raw, before dedup
	UniqueRecords  int `json:"unique_records"`
	Duplicates     int `json:"duplicates"`

	BatchesSent   int `json:"batches_sent"`
	BatchesFailed int `json:"batches_failed"`

	Outcomes []QueryOutcome `json:"outcomes,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
