// Package delivery ships accepted records to the downstream ingestion
// endpoint in fixed-size, run-ordered batches.
//
// Failure policy: a failed batch is logged and counted, never retried
// in-line, and never blocks later batches or queries. Every record was
// already appended to the run dataset before delivery, so a lost batch is
// recoverable by re-export rather than by blocking the crawl.
package delivery

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/passportdog/Apify-Local-Radar/models"
)

// Config controls batching and the ingestion endpoint.
type Config struct {
	// EndpointURL receives batch POSTs. Empty disables delivery entirely
	// (records still land in the run dataset).
	EndpointURL string

	// Secret, when non-empty, signs request bodies with HMAC-SHA256.
	Secret string

	// BatchSize is the maximum records per batch.
	BatchSize int

	// Timeout is the per-POST deadline.
	Timeout time.Duration
}

// Defaults fills zero fields.
func (c *Config) Defaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Pipeline slices accepted records into batches and posts them. The batch
// counter is run-wide and shared by all workers; numbers are assigned under
// the mutex at dispatch time so they reflect dispatch order, not completion
// order.
type Pipeline struct {
	cfg    Config
	runID  string
	client *http.Client

	mu        sync.Mutex
	nextBatch int
	sent      int
	failed    int
	delivered int
}

// NewPipeline creates a Pipeline for one run.
func NewPipeline(cfg Config, runID string) *Pipeline {
	cfg.Defaults()
	return &Pipeline{
		cfg:       cfg,
		runID:     runID,
		client:    &http.Client{Timeout: cfg.Timeout},
		nextBatch: 1,
	}
}

// Deliver posts the records for one query in consecutive batches of at most
// BatchSize. isFinal marks the last batch of the query's final delivery.
// With no endpoint configured it is a no-op: no batch numbers are claimed
// and nothing is counted as failed.
func (p *Pipeline) Deliver(ctx context.Context, records []*models.RawRecord, q models.SearchQuery, isFinal bool) models.DeliveryResult {
	var result models.DeliveryResult
	if p.cfg.EndpointURL == "" {
		if len(records) > 0 {
			slog.Debug("no ingestion endpoint configured, skipping delivery",
				"query", q.Identity(),
				"records", len(records),
			)
		}
		return result
	}
	size := p.cfg.BatchSize

	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]
		last := isFinal && end == len(records)

		num := p.claimBatchNumber()
		err := p.postBatch(ctx, num, chunk, q, last)

		p.mu.Lock()
		if err != nil {
			p.failed++
			result.BatchesFailed++
		} else {
			p.sent++
			p.delivered += len(chunk)
			result.BatchesSent++
			result.RecordsDelivered += len(chunk)
		}
		p.mu.Unlock()

		if err != nil {
			slog.Error("batch delivery failed",
				"batch", num,
				"query", q.Identity(),
				"records", len(chunk),
				"error", err,
			)
			continue
		}
		slog.Info("batch delivered",
			"batch", num,
			"query", q.Identity(),
			"records", len(chunk),
			"isFinal", last,
		)
	}

	return result
}

// Totals returns the run-wide delivery counters.
func (p *Pipeline) Totals() (sent, failed, delivered int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent, p.failed, p.delivered
}

// claimBatchNumber assigns the next run-wide batch number at dispatch time.
func (p *Pipeline) claimBatchNumber() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.nextBatch
	p.nextBatch++
	return n
}

// postBatch sends one batch. The body is signed with HMAC-SHA256 when a
// secret is configured. Header: X-Radar-Signature: sha256=<hex>.
func (p *Pipeline) postBatch(ctx context.Context, num int, records []*models.RawRecord, q models.SearchQuery, isFinal bool) error {
	payload := models.BatchPayload{
		RunID:       p.runID,
		BatchNumber: num,
		Ads:         records,
		Query:       models.BatchQuery{Keyword: q.Keyword, Location: q.Location},
		Timestamp:   time.Now().UTC(),
		IsFinal:     isFinal,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return models.NewHarvestError(models.ErrCodeDelivery, "marshal batch payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return models.NewHarvestError(models.ErrCodeDelivery, "create batch request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "LocalRadar/1.0")
	req.Header.Set("X-Radar-Run-Id", p.runID)
	req.Header.Set("X-Radar-Batch-Number", strconv.Itoa(num))
	req.Header.Set("X-Radar-Is-Final", strconv.FormatBool(isFinal))

	if p.cfg.Secret != "" {
		mac := hmac.New(sha256.New, []byte(p.cfg.Secret))
		mac.Write(body)
		req.Header.Set("X-Radar-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return models.NewHarvestError(models.ErrCodeDelivery, "post batch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.NewHarvestError(models.ErrCodeDelivery,
			fmt.Sprintf("endpoint returned status %d", resp.StatusCode), nil)
	}
	return nil
}
