package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/passportdog/Apify-Local-Radar/models"
)

// RunSnapshotter provides a point-in-time copy of the live run summary.
type RunSnapshotter interface {
	Snapshot() models.RunSummary
}

// runStatus is the /api/v1/run response: the summary counters plus the
// number of browser sessions currently checked out.
type runStatus struct {
	models.RunSummary
	ActiveSessions int `json:"active_sessions"`
}

// GetRun returns a handler for GET /api/v1/run: the live counters of the
// current run (queries done/failed, records, duplicates, batches) and the
// active session count. sessions may be nil.
func GetRun(run RunSnapshotter, sessions func() int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if run == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no run in progress"})
			return
		}
		status := runStatus{RunSummary: run.Snapshot()}
		if sessions != nil {
			status.ActiveSessions = sessions()
		}
		c.JSON(http.StatusOK, status)
	}
}
