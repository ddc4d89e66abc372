package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/passportdog/Apify-Local-Radar/models"
)

func TestDataset_AppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")

	ds, err := OpenDataset(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for i := 0; i < 3; i++ {
		rec := &models.RawRecord{
			ID:          fmt.Sprintf("ad-%d", i),
			Fingerprint: fmt.Sprintf("fp_%08x", i),
			PrimaryText: "golf carts",
		}
		if err := ds.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if ds.Count() != 3 {
		t.Errorf("count = %d, want 3", ds.Count())
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// One valid JSON object per line.
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec models.RawRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line %d not valid JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 3 {
		t.Errorf("lines = %d, want 3", lines)
	}
}

func TestDataset_AppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")

	for i := 0; i < 2; i++ {
		ds, err := OpenDataset(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := ds.Append(&models.RawRecord{ID: fmt.Sprintf("ad-%d", i)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		ds.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := len(splitLines(data)); got != 2 {
		t.Errorf("lines = %d, want 2 (append-only across opens)", got)
	}
}

func TestDataset_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	ds, err := OpenDataset(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = ds.Append(&models.RawRecord{ID: fmt.Sprintf("ad-%d-%d", w, i)})
			}
		}(w)
	}
	wg.Wait()

	if ds.Count() != 200 {
		t.Errorf("count = %d, want 200", ds.Count())
	}
	ds.Close()
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	return lines
}
