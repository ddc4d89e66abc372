// Package store holds the run's local durability layer: an append-only
// JSONL dataset written before delivery is attempted, and an optional
// Postgres sink mirroring the downstream uniqueness constraint.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/passportdog/Apify-Local-Radar/models"
)

// Dataset is the run's append-only output file, one JSON record per line.
// It is the durability fallback the delivery pipeline relies on: a record
// is appended before its batch is posted, so a lost delivery is recoverable
// by re-export. Safe for concurrent use.
type Dataset struct {
	mu    sync.Mutex
	f     *os.File
	enc   *json.Encoder
	path  string
	count int
}

// OpenDataset opens (creating if needed) the dataset file for appending.
func OpenDataset(path string) (*Dataset, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open dataset %s: %w", path, err)
	}
	return &Dataset{f: f, enc: json.NewEncoder(f), path: path}, nil
}

// Append writes one record as a JSON line.
func (d *Dataset) Append(rec *models.RawRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enc.Encode(rec); err != nil {
		return fmt.Errorf("store: append to %s: %w", d.path, err)
	}
	d.count++
	return nil
}

// Count returns the number of records appended during this run.
func (d *Dataset) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Path returns the dataset file path.
func (d *Dataset) Path() string { return d.path }

// Close syncs and closes the underlying file.
func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.f.Sync(); err != nil {
		_ = d.f.Close()
		return err
	}
	return d.f.Close()
}
