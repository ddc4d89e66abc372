package dedup

import (
	"fmt"
	"sync"
	"testing"

	"github.com/passportdog/Apify-Local-Radar/fingerprint"
	"github.com/passportdog/Apify-Local-Radar/models"
)

func record(advertiser, text string) *models.RawRecord {
	return &models.RawRecord{
		AdvertiserID:   advertiser,
		AdvertiserName: advertiser,
		PrimaryText:    text,
	}
}

func TestIsNew_Idempotence(t *testing.T) {
	tr := NewTracker()
	rec := record("114477", "new and used golf carts")

	if !tr.IsNew(rec) {
		t.Fatal("first sighting must be new")
	}
	if tr.IsNew(record("114477", "new and used golf carts")) {
		t.Fatal("second sighting must be rejected")
	}

	stats := tr.Stats()
	if stats.Unique != 1 || stats.Duplicates != 1 {
		t.Errorf("stats = %+v, want unique=1 duplicates=1", stats)
	}
}

func TestIsNew_StampsFingerprint(t *testing.T) {
	tr := NewTracker()
	rec := record("114477", "golf carts")

	tr.IsNew(rec)
	if rec.Fingerprint == "" {
		t.Fatal("IsNew must stamp the fingerprint")
	}
	if want := fingerprint.FromRecord(record("114477", "golf carts")); rec.Fingerprint != want {
		t.Errorf("stamped fingerprint %s, want %s", rec.Fingerprint, want)
	}
}

func TestIsNew_NormalizedVariantsCollide(t *testing.T) {
	tr := NewTracker()

	if !tr.IsNew(record("114477", "New and used GOLF carts")) {
		t.Fatal("first sighting must be new")
	}
	// Same content modulo case and whitespace.
	if tr.IsNew(record("114477", "  new and   used golf carts ")) {
		t.Error("normalized variant must be rejected as duplicate")
	}
}

func TestLoadExisting_PreloadRejectsFirstEncounter(t *testing.T) {
	tr := NewTracker()
	rec := record("114477", "golf carts")
	fp := fingerprint.FromRecord(rec)

	tr.LoadExisting([]string{fp})

	if tr.IsNew(rec) {
		t.Fatal("record matching a pre-loaded fingerprint must be rejected on first encounter")
	}

	stats := tr.Stats()
	if stats.Unique != 0 || stats.Duplicates != 1 {
		t.Errorf("stats = %+v, want unique=0 duplicates=1", stats)
	}
}

func TestLoadExisting_Idempotent(t *testing.T) {
	tr := NewTracker()
	tr.LoadExisting([]string{"fp_00000001", "fp_00000001", ""})
	tr.LoadExisting([]string{"fp_00000001"})

	// Pre-loads never touch the counters.
	if stats := tr.Stats(); stats.Unique != 0 || stats.Duplicates != 0 {
		t.Errorf("stats after pre-load = %+v, want zeros", stats)
	}
}

func TestIsNew_ConcurrentWorkers(t *testing.T) {
	tr := NewTracker()

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// Every worker submits the same 200 records.
				tr.IsNew(record("adv", fmt.Sprintf("ad body %d", i)))
			}
		}()
	}
	wg.Wait()

	stats := tr.Stats()
	if stats.Unique != perWorker {
		t.Errorf("unique = %d, want %d", stats.Unique, perWorker)
	}
	if stats.Duplicates != (workers-1)*perWorker {
		t.Errorf("duplicates = %d, want %d", stats.Duplicates, (workers-1)*perWorker)
	}
	if stats.Unique+stats.Duplicates != workers*perWorker {
		t.Errorf("unique+duplicates = %d, want raw count %d",
			stats.Unique+stats.Duplicates, workers*perWorker)
	}
}
