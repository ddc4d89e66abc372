// Package paginate drives the infinite-scroll loop of an ad-library results
// page. The source exposes no page count or cursor, so progress is inferred
// from DOM growth and termination is heuristic and bounded.
package paginate

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Page is the minimal surface the controller needs from a live page
// session. scraper.Session implements it; tests use a scripted fake.
type Page interface {
	// ScrollToBottom scrolls the results container to its bottom,
	// triggering the next lazy load.
	ScrollToBottom() error

	// ExpandAll clicks any explicit "see more results" control if one is
	// present. Best-effort; its absence is not an error.
	ExpandAll() error

	// VisibleCount measures the number of candidate ad cards currently
	// in the DOM.
	VisibleCount() (int, error)
}

// Config bounds the scroll loop.
type Config struct {
	// StallThreshold is the number of consecutive rounds with no growth
	// in visible count before the controller gives up.
	StallThreshold int

	// MaxRounds is the hard cap on scroll rounds, the safety valve
	// against pages that keep mutating without converging.
	MaxRounds int

	// MinWait and MaxWait bound the randomized pause between rounds.
	// A fixed cadence is a bot signature; the jitter avoids one.
	MinWait time.Duration
	MaxWait time.Duration
}

// Defaults fills zero fields with the standard bounds.
func (c *Config) Defaults() {
	if c.StallThreshold <= 0 {
		c.StallThreshold = 3
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = 40
	}
	if c.MinWait <= 0 {
		c.MinWait = 1500 * time.Millisecond
	}
	if c.MaxWait < c.MinWait {
		c.MaxWait = c.MinWait + 2*time.Second
	}
}

// Controller runs the scroll/wait/count loop against one page session.
type Controller struct {
	cfg Config
}

// NewController creates a Controller, applying defaults to cfg.
func NewController(cfg Config) *Controller {
	cfg.Defaults()
	return &Controller{cfg: cfg}
}

// Run extends the visible record set until one of three conditions fires:
// the visible count reaches maxRecords, StallThreshold consecutive rounds
// produce no growth, or MaxRounds is exhausted. It returns the final
// observed count; extraction is the caller's job.
func (c *Controller) Run(ctx context.Context, page Page, maxRecords int) (int, error) {
	count, err := page.VisibleCount()
	if err != nil {
		return 0, err
	}

	stalled := 0
	for round := 1; round <= c.cfg.MaxRounds; round++ {
		if maxRecords > 0 && count >= maxRecords {
			slog.Debug("pagination reached requested maximum",
				"visible", count, "max", maxRecords, "rounds", round-1)
			return count, nil
		}

		if err := page.ScrollToBottom(); err != nil {
			return count, err
		}
		// Some layouts gate further loading behind an explicit control.
		_ = page.ExpandAll()

		if err := c.pause(ctx); err != nil {
			return count, err
		}

		next, err := page.VisibleCount()
		if err != nil {
			return count, err
		}

		if next > count {
			count = next
			stalled = 0
		} else {
			stalled++
			if stalled >= c.cfg.StallThreshold {
				slog.Debug("pagination stalled",
					"visible", count, "stalledRounds", stalled, "rounds", round)
				return count, nil
			}
		}
	}

	slog.Debug("pagination hit round cap", "visible", count, "cap", c.cfg.MaxRounds)
	return count, nil
}

// pause sleeps a randomized interval within [MinWait, MaxWait], or returns
// early if ctx is done.
func (c *Controller) pause(ctx context.Context) error {
	wait := c.cfg.MinWait
	if span := c.cfg.MaxWait - c.cfg.MinWait; span > 0 {
		wait += time.Duration(rand.Int63n(int64(span)))
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
