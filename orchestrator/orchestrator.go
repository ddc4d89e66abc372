// Package orchestrator schedules queries onto a bounded pool of worker
// sessions and sequences the per-query pipeline: navigate → detect-block →
// paginate → extract → dedup → deliver.
//
// Failure isolation is the governing rule: any per-query-fatal condition
// marks that query Failed and the run moves on. Nothing stops the run
// except operator cancellation.
package orchestrator

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/passportdog/Apify-Local-Radar/dedup"
	"github.com/passportdog/Apify-Local-Radar/extract"
	"github.com/passportdog/Apify-Local-Radar/models"
	"github.com/passportdog/Apify-Local-Radar/paginate"
)

// Session is what a worker needs from a live browser session. It embeds
// paginate.Page so the pagination controller can drive the same session.
// scraper.Session implements it.
type Session interface {
	paginate.Page
	Navigate(ctx context.Context, url string) error
	HTML() (string, error)
	Release()
}

// Deliverer ships one query's accepted records. delivery.Pipeline
// implements it.
type Deliverer interface {
	Deliver(ctx context.Context, records []*models.RawRecord, q models.SearchQuery, isFinal bool) models.DeliveryResult
}

// RecordSink receives every accepted record before delivery is attempted.
// store.Dataset implements it.
type RecordSink interface {
	Append(rec *models.RawRecord) error
}

// BatchSink receives accepted records in bulk, e.g. the optional Postgres
// layer-3 sink. store.PostgresSink implements it.
type BatchSink interface {
	UpsertBatch(ctx context.Context, records []*models.RawRecord) (int, error)
}

// Config bounds scheduling, rate, and retry policy.
type Config struct {
	// Concurrency is the worker pool size.
	Concurrency int

	// RatePerMinute is the run-wide navigation ceiling, enforced by one
	// shared limiter so aggregate cadence respects the policy, not
	// per-worker cadence.
	RatePerMinute float64

	// RetryAttempts and RetryDelay govern navigation retries.
	RetryAttempts int
	RetryDelay    time.Duration

	// NavigationTimeout caps one navigation; QueryBudget caps a query
	// end to end.
	NavigationTimeout time.Duration
	QueryBudget       time.Duration

	// MaxRecordsPerQuery stops pagination once reached.
	MaxRecordsPerQuery int

	// Paginate bounds the scroll loop.
	Paginate paginate.Config

	// MinQueryDelay/MaxQueryDelay bound the randomized pause a worker
	// takes after each query, regardless of outcome.
	MinQueryDelay time.Duration
	MaxQueryDelay time.Duration
}

// Defaults fills zero fields with the standard policy.
func (c *Config) Defaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	if c.RatePerMinute <= 0 {
		c.RatePerMinute = 10
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 60 * time.Second
	}
	if c.QueryBudget <= 0 {
		c.QueryBudget = 5 * time.Minute
	}
	if c.MaxRecordsPerQuery <= 0 {
		c.MaxRecordsPerQuery = 100
	}
	if c.MaxQueryDelay < c.MinQueryDelay {
		c.MaxQueryDelay = c.MinQueryDelay
	}
}

// Deps are the collaborators a run is wired with. Function fields follow
// the injection style of the browser callback in cmd wiring; they keep
// this package free of a direct browser dependency.
type Deps struct {
	// Acquire checks a session out of the browser pool.
	Acquire func() (Session, error)

	// BuildURL renders the library search URL for a query.
	BuildURL func(q models.SearchQuery) (string, error)

	// Blocked inspects rendered HTML for challenge signatures.
	Blocked func(html string) bool

	Extractor extract.Extractor
	Tracker   *dedup.Tracker
	Pipeline  Deliverer

	// Dataset and Sink are optional durability layers.
	Dataset RecordSink
	Sink    BatchSink
}

// Runner drives one harvesting run.
type Runner struct {
	cfg     Config
	deps    Deps
	runID   string
	limiter *rate.Limiter
	pager   *paginate.Controller

	mu      sync.Mutex
	summary models.RunSummary
}

// New creates a Runner for one run.
func New(cfg Config, deps Deps, runID string) *Runner {
	cfg.Defaults()
	return &Runner{
		cfg:     cfg,
		deps:    deps,
		runID:   runID,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60.0), 1),
		pager:   paginate.NewController(cfg.Paginate),
	}
}

// Run processes all queries and returns the finalized summary. Queries are
// ordered by priority (higher first, stable for equal priorities) before
// being handed to the worker pool.
func (r *Runner) Run(ctx context.Context, queries []models.SearchQuery) *models.RunSummary {
	ordered := make([]models.SearchQuery, len(queries))
	copy(ordered, queries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	r.mu.Lock()
	r.summary = models.RunSummary{RunID: r.runID, StartedAt: time.Now().UTC()}
	r.mu.Unlock()

	jobs := make(chan models.SearchQuery)
	var wg sync.WaitGroup

	for w := 0; w < r.cfg.Concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for q := range jobs {
				r.runOne(ctx, worker, q)
				// Inter-query pause applies regardless of outcome to
				// keep aggregate cadence within policy.
				r.pause(ctx, r.cfg.MinQueryDelay, r.cfg.MaxQueryDelay)
			}
		}(w)
	}

feed:
	for _, q := range ordered {
		select {
		case jobs <- q:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.deps.Tracker.Stats()
	r.summary.UniqueRecords = stats.Unique
	r.summary.Duplicates = stats.Duplicates
	r.summary.FinishedAt = time.Now().UTC()
	return cloneSummary(&r.summary)
}

// Snapshot returns a copy of the live summary for the status API.
func (r *Runner) Snapshot() models.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := cloneSummary(&r.summary)
	if r.deps.Tracker != nil {
		stats := r.deps.Tracker.Stats()
		snap.UniqueRecords = stats.Unique
		snap.Duplicates = stats.Duplicates
	}
	return *snap
}

// runOne processes one query and folds its outcome into the summary.
func (r *Runner) runOne(ctx context.Context, worker int, q models.SearchQuery) {
	outcome, raw, delivered := r.processQuery(ctx, q)

	r.mu.Lock()
	r.summary.QueriesProcessed++
	if outcome.State == models.QueryStateCompleted {
		r.summary.QueriesCompleted++
	} else {
		r.summary.QueriesFailed++
	}
	r.summary.RecordsScraped += raw
	r.summary.BatchesSent += delivered.BatchesSent
	r.summary.BatchesFailed += delivered.BatchesFailed
	r.summary.Outcomes = append(r.summary.Outcomes, outcome)
	r.mu.Unlock()

	if outcome.State == models.QueryStateFailed {
		slog.Error("query failed",
			"worker", worker,
			"query", q.Identity(),
			"errorCode", outcome.ErrorCode,
		)
		return
	}
	slog.Info("query completed",
		"worker", worker,
		"query", q.Identity(),
		"raw", raw,
		"accepted", outcome.Accepted,
		"batchesSent", delivered.BatchesSent,
	)
}

// processQuery walks one query through the state machine. It returns the
// outcome, the raw extracted count, and the delivery result.
func (r *Runner) processQuery(ctx context.Context, q models.SearchQuery) (models.QueryOutcome, int, models.DeliveryResult) {
	outcome := models.QueryOutcome{Query: q, State: models.QueryStateFailed}
	var none models.DeliveryResult

	if err := q.Validate(); err != nil {
		outcome.ErrorCode = models.CodeOf(err)
		return outcome, 0, none
	}

	qctx, cancel := context.WithTimeout(ctx, r.cfg.QueryBudget)
	defer cancel()

	target, err := r.deps.BuildURL(q)
	if err != nil {
		outcome.ErrorCode = models.CodeOf(err)
		return outcome, 0, none
	}

	sess, err := r.deps.Acquire()
	if err != nil {
		outcome.ErrorCode = models.CodeOf(err)
		return outcome, 0, none
	}
	defer sess.Release()

	// ── Navigating (with retry) ─────────────────────────────────────
	r.logState(q, models.QueryStateNavigating)
	if err := r.navigate(qctx, sess, q, target); err != nil {
		outcome.ErrorCode = models.CodeOf(err)
		return outcome, 0, none
	}

	// ── Detecting block ─────────────────────────────────────────────
	r.logState(q, models.QueryStateDetectingBlock)
	landed, err := sess.HTML()
	if err != nil {
		outcome.ErrorCode = models.CodeOf(err)
		return outcome, 0, none
	}
	if r.deps.Blocked != nil && r.deps.Blocked(landed) {
		// Terminal, no retry: escalating against an active challenge
		// risks harsher blocking.
		outcome.ErrorCode = models.ErrCodeBlocked
		return outcome, 0, none
	}

	// ── Paginating ──────────────────────────────────────────────────
	r.logState(q, models.QueryStatePaginating)
	visible, err := r.pager.Run(qctx, sess, r.cfg.MaxRecordsPerQuery)
	if err != nil {
		outcome.ErrorCode = models.CodeOf(err)
		return outcome, 0, none
	}

	// ── Extracting ──────────────────────────────────────────────────
	r.logState(q, models.QueryStateExtracting)
	rendered, err := sess.HTML()
	if err != nil {
		outcome.ErrorCode = models.CodeOf(err)
		return outcome, 0, none
	}
	records, err := r.deps.Extractor.Extract(rendered, q)
	if err != nil {
		outcome.ErrorCode = models.CodeOf(err)
		return outcome, 0, none
	}
	raw := len(records)
	if raw == 0 {
		// A valid empty outcome, not an error.
		slog.Info("no results found", "query", q.Identity(), "visible", visible)
		outcome.State = models.QueryStateCompleted
		return outcome, 0, none
	}

	// ── Dedup ───────────────────────────────────────────────────────
	accepted := records[:0]
	for _, rec := range records {
		if r.deps.Tracker.IsNew(rec) {
			accepted = append(accepted, rec)
		}
	}

	// Durability before delivery: dataset first, then the optional
	// layer-3 sink. Both are non-fatal on failure.
	if r.deps.Dataset != nil {
		for _, rec := range accepted {
			if err := r.deps.Dataset.Append(rec); err != nil {
				slog.Warn("dataset append failed", "query", q.Identity(), "error", err)
			}
		}
	}
	if r.deps.Sink != nil && len(accepted) > 0 {
		if _, err := r.deps.Sink.UpsertBatch(qctx, accepted); err != nil {
			slog.Warn("store upsert failed", "query", q.Identity(), "error", err)
		}
	}

	// ── Delivering ──────────────────────────────────────────────────
	r.logState(q, models.QueryStateDelivering)
	result := r.deps.Pipeline.Deliver(qctx, accepted, q, true)

	outcome.State = models.QueryStateCompleted
	outcome.Accepted = len(accepted)
	return outcome, raw, result
}

// navigate attempts navigation up to RetryAttempts times with a fixed
// delay between attempts. Every attempt passes through the shared rate
// limiter so retries also count against the run-wide ceiling.
func (r *Runner) navigate(ctx context.Context, sess Session, q models.SearchQuery, target string) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.RetryAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return models.NewHarvestError(models.ErrCodeTimeout, "rate limiter wait aborted", err)
		}

		navCtx, navCancel := context.WithTimeout(ctx, r.cfg.NavigationTimeout)
		lastErr = sess.Navigate(navCtx, target)
		navCancel()
		if lastErr == nil {
			return nil
		}

		slog.Warn("navigation attempt failed",
			"query", q.Identity(),
			"attempt", attempt,
			"maxAttempts", r.cfg.RetryAttempts,
			"error", lastErr,
		)
		if attempt < r.cfg.RetryAttempts {
			if err := sleepCtx(ctx, r.cfg.RetryDelay); err != nil {
				return models.NewHarvestError(models.ErrCodeTimeout, "retry wait aborted", err)
			}
		}
	}
	return lastErr
}

func (r *Runner) logState(q models.SearchQuery, state string) {
	slog.Debug("query state", "query", q.Identity(), "state", state)
}

// pause sleeps a randomized interval within [min, max]; returns early on
// context cancellation.
func (r *Runner) pause(ctx context.Context, min, max time.Duration) {
	if min <= 0 && max <= 0 {
		return
	}
	wait := min
	if span := max - min; span > 0 {
		wait += time.Duration(rand.Int63n(int64(span)))
	}
	_ = sleepCtx(ctx, wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cloneSummary(s *models.RunSummary) *models.RunSummary {
	out := *s
	out.Outcomes = append([]models.QueryOutcome(nil), s.Outcomes...)
	return &out
}
