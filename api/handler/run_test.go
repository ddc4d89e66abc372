package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/passportdog/Apify-Local-Radar/models"
)

type stubSnapshotter struct {
	summary models.RunSummary
}

func (s *stubSnapshotter) Snapshot() models.RunSummary { return s.summary }

func TestGetRun(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := &stubSnapshotter{summary: models.RunSummary{
		RunID:            "run-abc123",
		QueriesProcessed: 3,
		QueriesCompleted: 2,
		QueriesFailed:    1,
		UniqueRecords:    40,
	}}

	r := gin.New()
	r.GET("/api/v1/run", GetRun(run, func() int { return 2 }))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/run", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got struct {
		RunID          string `json:"run_id"`
		UniqueRecords  int    `json:"unique_records"`
		ActiveSessions int    `json:"active_sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if got.RunID != "run-abc123" || got.UniqueRecords != 40 {
		t.Errorf("response = %+v", got)
	}
	if got.ActiveSessions != 2 {
		t.Errorf("active_sessions = %d, want 2", got.ActiveSessions)
	}
}

func TestGetRun_NoRun(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/api/v1/run", GetRun(nil, nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/run", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
