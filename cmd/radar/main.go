package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/passportdog/Apify-Local-Radar/api"
	"github.com/passportdog/Apify-Local-Radar/config"
	"github.com/passportdog/Apify-Local-Radar/dedup"
	"github.com/passportdog/Apify-Local-Radar/delivery"
	"github.com/passportdog/Apify-Local-Radar/extract"
	"github.com/passportdog/Apify-Local-Radar/models"
	"github.com/passportdog/Apify-Local-Radar/orchestrator"
	"github.com/passportdog/Apify-Local-Radar/paginate"
	"github.com/passportdog/Apify-Local-Radar/scraper"
	"github.com/passportdog/Apify-Local-Radar/store"
)

func main() {
	queriesPath := flag.String("queries", "", "path to a JSON file of search queries")
	keyword := flag.String("keyword", "", "single keyword to harvest (alternative to -queries)")
	location := flag.String("location", "", "location filter for -keyword")
	flag.Parse()

	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	runID := newRunID()
	slog.Info("radar starting",
		"runId", runID,
		"concurrency", cfg.Harvest.Concurrency,
		"ratePerMinute", cfg.Harvest.RatePerMinute,
		"maxPages", cfg.Browser.MaxPages,
	)

	// ── 3. Load queries ─────────────────────────────────────────────
	queries, err := loadQueries(*queriesPath, *keyword, *location)
	if err != nil {
		slog.Error("failed to load queries", "error", err)
		os.Exit(1)
	}
	if len(queries) == 0 {
		slog.Error("no queries given: use -queries or -keyword")
		os.Exit(1)
	}
	slog.Info("queries loaded", "count", len(queries))

	// ── 4. Cancellation on SIGINT/SIGTERM ───────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 5. Dedup tracker, seeded from the pre-check endpoint ────────
	tracker := dedup.NewTracker()
	preChecker := &delivery.PreChecker{URL: cfg.Delivery.PreCheckURL}
	if fps, err := preChecker.Fetch(ctx, keywords(queries)); err != nil {
		// Degraded but not fatal: the run proceeds with an empty set and
		// the store's uniqueness constraint absorbs the re-sends.
		slog.Warn("pre-check unavailable, continuing without known fingerprints", "error", err)
	} else if len(fps) > 0 {
		tracker.LoadExisting(fps)
		slog.Info("known fingerprints pre-loaded", "count", len(fps))
	}

	// ── 6. Durability sinks ─────────────────────────────────────────
	dataset, err := store.OpenDataset(cfg.Store.DatasetPath)
	if err != nil {
		slog.Error("failed to open dataset", "path", cfg.Store.DatasetPath, "error", err)
		os.Exit(1)
	}
	defer dataset.Close()

	var sink orchestrator.BatchSink
	if cfg.Store.PostgresDSN != "" {
		pg, err := store.OpenPostgres(ctx, cfg.Store.PostgresDSN, cfg.Store.PostgresSchema)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure postgres schema", "error", err)
			os.Exit(1)
		}
		sink = pg
		slog.Info("postgres sink enabled", "schema", cfg.Store.PostgresSchema)
	}

	// ── 7. Initialise scraper (launches browser) ────────────────────
	sc, err := scraper.NewScraper(cfg.Browser)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}
	defer sc.Close()

	// ── 8. Wire the orchestrator ────────────────────────────────────
	pipeline := delivery.NewPipeline(delivery.Config{
		EndpointURL: cfg.Delivery.EndpointURL,
		Secret:      cfg.Delivery.Secret,
		BatchSize:   cfg.Delivery.BatchSize,
		Timeout:     cfg.Delivery.Timeout,
	}, runID)

	runner := orchestrator.New(orchestrator.Config{
		Concurrency:        cfg.Harvest.Concurrency,
		RatePerMinute:      cfg.Harvest.RatePerMinute,
		RetryAttempts:      cfg.Harvest.RetryAttempts,
		RetryDelay:         cfg.Harvest.RetryDelay,
		NavigationTimeout:  cfg.Harvest.NavigationTimeout,
		QueryBudget:        cfg.Harvest.QueryBudget,
		MaxRecordsPerQuery: cfg.Harvest.MaxRecordsPerQuery,
		Paginate: paginate.Config{
			StallThreshold: cfg.Harvest.StallThreshold,
			MaxRounds:      cfg.Harvest.MaxScrollRounds,
			MinWait:        cfg.Harvest.MinScrollWait,
			MaxWait:        cfg.Harvest.MaxScrollWait,
		},
		MinQueryDelay: cfg.Harvest.MinQueryDelay,
		MaxQueryDelay: cfg.Harvest.MaxQueryDelay,
	}, orchestrator.Deps{
		// The closure adapts *scraper.Session to the orchestrator's
		// Session interface and keeps orchestrator/ free of a rod import.
		Acquire: func() (orchestrator.Session, error) {
			return sc.Acquire()
		},
		BuildURL: func(q models.SearchQuery) (string, error) {
			return scraper.SearchURL(cfg.Harvest.BaseURL, q)
		},
		Blocked:   scraper.IsBlocked,
		Extractor: extract.NewCardExtractor(cfg.Harvest.BaseURL),
		Tracker:   tracker,
		Pipeline:  pipeline,
		Dataset:   dataset,
		Sink:      sink,
	}, runID)

	// ── 9. Optional status server ───────────────────────────────────
	var srv *http.Server
	if cfg.Server.Enabled {
		router := api.NewRouter(runner, sc.ActiveSessions, cfg, time.Now())
		srv = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		}
		go func() {
			slog.Info("status server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("status server error", "error", err)
			}
		}()
	}

	// ── 10. Run ─────────────────────────────────────────────────────
	summary := runner.Run(ctx, queries)

	slog.Info("run finished",
		"runId", summary.RunID,
		"queriesProcessed", summary.QueriesProcessed,
		"queriesCompleted", summary.QueriesCompleted,
		"queriesFailed", summary.QueriesFailed,
		"recordsScraped", summary.RecordsScraped,
		"uniqueRecords", summary.UniqueRecords,
		"duplicates", summary.Duplicates,
		"batchesSent", summary.BatchesSent,
		"batchesFailed", summary.BatchesFailed,
		"elapsed", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second).String(),
		"dataset", dataset.Path(),
	)

	// ── 11. Drain the status server ─────────────────────────────────
	if srv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Error("status server forced shutdown", "error", err)
		}
	}

	if summary.QueriesFailed > 0 && summary.QueriesCompleted == 0 {
		os.Exit(1)
	}
}

// loadQueries reads the query list from a JSON file, or builds a single
// query from the -keyword/-location flags.
func loadQueries(path, keyword, location string) ([]models.SearchQuery, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read queries file: %w", err)
		}
		var queries []models.SearchQuery
		if err := json.Unmarshal(data, &queries); err != nil {
			return nil, fmt.Errorf("parse queries file: %w", err)
		}
		return queries, nil
	}
	if keyword != "" {
		return []models.SearchQuery{{Keyword: keyword, Location: location}}, nil
	}
	return nil, nil
}

// keywords flattens the query list for the pre-check request.
func keywords(queries []models.SearchQuery) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		out = append(out, q.Keyword)
	}
	return out
}

// newRunID returns an identifier like "run-9f3a1c04b2d6".
func newRunID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return "run-" + hex.EncodeToString(b)
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
