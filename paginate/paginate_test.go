package paginate

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedPage replays a fixed growth sequence of visible counts.
type scriptedPage struct {
	counts  []int // counts[i] is the measurement for round i; last value repeats
	calls   int
	scrolls int
	expands int
}

func (p *scriptedPage) ScrollToBottom() error { p.scrolls++; return nil }
func (p *scriptedPage) ExpandAll() error      { p.expands++; return nil }

func (p *scriptedPage) VisibleCount() (int, error) {
	i := p.calls
	p.calls++
	if i >= len(p.counts) {
		i = len(p.counts) - 1
	}
	return p.counts[i], nil
}

func fastConfig(stall, cap int) Config {
	return Config{
		StallThreshold: stall,
		MaxRounds:      cap,
		MinWait:        time.Millisecond,
		MaxWait:        2 * time.Millisecond,
	}
}

func TestRun_StopsAtRequestedMaximum(t *testing.T) {
	page := &scriptedPage{counts: []int{0, 10, 20, 30, 40, 50}}
	c := NewController(fastConfig(3, 40))

	count, err := c.Run(context.Background(), page, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count < 25 {
		t.Errorf("count = %d, want >= 25", count)
	}
	// It must stop at the first measurement that crosses the max: 0,10,20,30.
	if page.calls != 4 {
		t.Errorf("measurements = %d, want 4", page.calls)
	}
}

func TestRun_StopsOnStall(t *testing.T) {
	// Plateaus at 30 after 3 growth rounds.
	page := &scriptedPage{counts: []int{0, 10, 20, 30}}
	stall := 3
	c := NewController(fastConfig(stall, 40))

	count, err := c.Run(context.Background(), page, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 30 {
		t.Errorf("count = %d, want 30", count)
	}
	// Growth for rounds 1-3, then stallThreshold no-growth rounds.
	wantRounds := 3 + stall
	if page.scrolls != wantRounds {
		t.Errorf("rounds = %d, want %d (k + stallThreshold)", page.scrolls, wantRounds)
	}
}

func TestRun_HardCap(t *testing.T) {
	// Grows by one every round, forever; only the cap stops it.
	counts := make([]int, 100)
	for i := range counts {
		counts[i] = i
	}
	page := &scriptedPage{counts: counts}
	c := NewController(fastConfig(3, 7))

	if _, err := c.Run(context.Background(), page, 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.scrolls != 7 {
		t.Errorf("rounds = %d, want hard cap 7", page.scrolls)
	}
}

func TestRun_ExpandClickedEachRound(t *testing.T) {
	page := &scriptedPage{counts: []int{0, 5, 5}}
	c := NewController(fastConfig(2, 40))

	if _, err := c.Run(context.Background(), page, 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.expands != page.scrolls {
		t.Errorf("expands = %d, scrolls = %d; expand must run every round", page.expands, page.scrolls)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	page := &scriptedPage{counts: []int{0, 1, 2, 3}}
	c := NewController(Config{
		StallThreshold: 3,
		MaxRounds:      40,
		MinWait:        50 * time.Millisecond,
		MaxWait:        60 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Run(ctx, page, 1000)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}

type failingPage struct{ scriptedPage }

func (p *failingPage) VisibleCount() (int, error) {
	return 0, errors.New("detached frame")
}

func TestRun_MeasurementError(t *testing.T) {
	c := NewController(fastConfig(3, 40))
	if _, err := c.Run(context.Background(), &failingPage{}, 10); err == nil {
		t.Fatal("expected measurement error to propagate")
	}
}
