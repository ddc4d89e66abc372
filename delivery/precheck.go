package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/passportdog/Apify-Local-Radar/models"
)

// PreChecker asks the external store which fingerprints it already holds
// for a set of keywords, seeding layer 2 of the dedup scheme. Any failure
// must be tolerated by the caller as "no pre-existing knowledge".
type PreChecker struct {
	// URL of the pre-check endpoint. Empty means no pre-check.
	URL string

	// Client defaults to a 15s-timeout client.
	Client *http.Client
}

type preCheckRequest struct {
	Queries []string `json:"queries"`
}

type preCheckResponse struct {
	Fingerprints []string `json:"fingerprints"`
}

// Fetch returns the known fingerprints for the given keywords. All errors
// carry ErrCodePreCheck; callers log and proceed with an empty set.
func (p *PreChecker) Fetch(ctx context.Context, keywords []string) ([]string, error) {
	if p.URL == "" {
		return nil, nil
	}

	body, err := json.Marshal(preCheckRequest{Queries: keywords})
	if err != nil {
		return nil, models.NewHarvestError(models.ErrCodePreCheck, "marshal pre-check request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return nil, models.NewHarvestError(models.ErrCodePreCheck, "create pre-check request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "LocalRadar/1.0")

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, models.NewHarvestError(models.ErrCodePreCheck, "pre-check unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, models.NewHarvestError(models.ErrCodePreCheck,
			fmt.Sprintf("pre-check returned status %d", resp.StatusCode), nil)
	}

	var decoded preCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, models.NewHarvestError(models.ErrCodePreCheck, "decode pre-check response", err)
	}
	return decoded.Fingerprints, nil
}
