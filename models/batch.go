package models

import "time"

// BatchQuery is the query context attached to a delivered batch.
type BatchQuery struct {
	Keyword  string `json:"keyword"`
	Location string `json:"location,omitempty"`
}

// BatchPayload is the JSON body POSTed to the ingestion endpoint for one batch.
type BatchPayload struct {
	RunID       string       `json:"runId"`
	BatchNumber int          `json:"batchNumber"`
	Ads         []*RawRecord `json:"ads"`
	Query       BatchQuery   `json:"query"`
	Timestamp   time.Time    `json:"timestamp"`
	IsFinal     bool         `json:"isFinal"`
}

// DeliveryResult summarizes the outcome of delivering one query's records.
// Failed batches are counted, never retried; see the pipeline's failure policy.
type DeliveryResult struct {
	BatchesSent      int
	BatchesFailed    int
	RecordsDelivered int
}
