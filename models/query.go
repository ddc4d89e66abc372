package models

import "strings"

// SearchQuery is one unit of harvesting work. Immutable once enqueued.
// Identity is (Keyword, Location); Priority only affects scheduling order.
type SearchQuery struct {
	Keyword  string `json:"keyword"`
	Location string `json:"location,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

// Identity returns the canonical identity string for the query.
func (q SearchQuery) Identity() string {
	if q.Location == "" {
		return q.Keyword
	}
	return q.Keyword + " @ " + q.Location
}

// Validate reports whether the query is usable.
func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Keyword) == "" {
		return NewHarvestError(ErrCodeInvalidInput, "query keyword is required", nil)
	}
	return nil
}

// Query state machine. A query moves strictly forward through these states;
// Failed is terminal for the query only, never for the run.
const (
	QueryStateQueued         = "queued"
	QueryStateNavigating     = "navigating"
	QueryStateDetectingBlock = "detecting_block"
	QueryStatePaginating     = "paginating"
	QueryStateExtracting     = "extracting"
	QueryStateDelivering     = "delivering"
	QueryStateCompleted      = "completed"
	QueryStateFailed         = "failed"
)
