// Package dedup owns the in-process layers of the three-layer
// deduplication scheme: the in-run fingerprint set (layer 1) seeded with
// fingerprints pre-loaded from the external store (layer 2). Layer 3, the
// uniqueness constraint in the persistent store, is the backstop for any
// race this package cannot close.
package dedup

import (
	"sync"

	"github.com/passportdog/Apify-Local-Radar/fingerprint"
	"github.com/passportdog/Apify-Local-Radar/models"
)

// Stats is a read-only snapshot of the tracker's counters.
type Stats struct {
	Unique     int `json:"unique"`
	Duplicates int `json:"duplicates"`
}

// Tracker is the shared set of seen fingerprints plus a duplicate counter.
// It is safe for concurrent use; all workers share one instance per run.
type Tracker struct {
	mu         sync.Mutex
	seen       map[string]struct{}
	unique     int
	duplicates int
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// LoadExisting bulk-inserts fingerprints known to the external store.
// Called once before any query begins processing. Idempotent; pre-loaded
// fingerprints do not count toward the unique counter.
func (t *Tracker) LoadExisting(fps []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, fp := range fps {
		if fp == "" {
			continue
		}
		t.seen[fp] = struct{}{}
	}
}

// IsNew decides whether the record has been seen before. It computes and
// stamps the record's fingerprint if absent. The first sighting of a
// fingerprint inserts it and returns true; every later sighting increments
// the duplicate counter and returns false.
func (t *Tracker) IsNew(rec *models.RawRecord) bool {
	if rec.Fingerprint == "" {
		rec.Fingerprint = fingerprint.FromRecord(rec)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, dup := t.seen[rec.Fingerprint]; dup {
		t.duplicates++
		return false
	}
	t.seen[rec.Fingerprint] = struct{}{}
	t.unique++
	return true
}

// Stats returns a snapshot of the counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{Unique: t.unique, Duplicates: t.duplicates}
}
