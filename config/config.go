package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Browser  BrowserConfig
	Harvest  HarvestConfig
	Delivery DeliveryConfig
	Store    StoreConfig
	Server   ServerConfig
	Log      LogConfig
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 4

	// DefaultProxy is the proxy URL applied at browser launch.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// BlockedResourceTypes lists resource types to block while scrolling.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// HarvestConfig controls query scheduling, pagination, and rate policy.
type HarvestConfig struct {
	// BaseURL is the ad library search endpoint the browser navigates to.
	BaseURL string

	// Concurrency is the number of simultaneous worker sessions.
	Concurrency int // default: 2

	// RatePerMinute is the run-wide navigation rate ceiling, enforced
	// centrally across all workers.
	RatePerMinute float64 // default: 10

	// RetryAttempts is the per-navigation retry limit.
	RetryAttempts int // default: 3

	// RetryDelay is the fixed pause between navigation attempts.
	RetryDelay time.Duration // default: 5s

	// NavigationTimeout is the deadline for a single navigation.
	NavigationTimeout time.Duration // default: 60s

	// QueryBudget is the wall-clock budget for one query end to end.
	QueryBudget time.Duration // default: 5m

	// MaxRecordsPerQuery stops pagination once this many cards are visible.
	MaxRecordsPerQuery int // default: 100

	// StallThreshold and MaxScrollRounds bound the pagination loop.
	StallThreshold  int // default: 3
	MaxScrollRounds int // default: 40

	// MinScrollWait/MaxScrollWait bound the randomized pause between
	// scroll rounds.
	MinScrollWait time.Duration // default: 1.5s
	MaxScrollWait time.Duration // default: 3.5s

	// MinQueryDelay/MaxQueryDelay bound the randomized pause between
	// queries, applied regardless of outcome.
	MinQueryDelay time.Duration // default: 2s
	MaxQueryDelay time.Duration // default: 6s
}

// DeliveryConfig controls the ingestion endpoint and the pre-check.
type DeliveryConfig struct {
	// EndpointURL receives batch POSTs. Empty disables delivery.
	EndpointURL string

	// Secret signs batch bodies with HMAC-SHA256 when non-empty.
	Secret string

	// BatchSize is the maximum records per batch.
	BatchSize int // default: 10

	// Timeout is the per-POST deadline.
	Timeout time.Duration // default: 30s

	// PreCheckURL is the optional known-fingerprints endpoint.
	PreCheckURL string
}

// StoreConfig controls local durability sinks.
type StoreConfig struct {
	// DatasetPath is the append-only JSONL output file.
	DatasetPath string // default: "dataset.jsonl"

	// PostgresDSN enables the optional Postgres sink when non-empty.
	PostgresDSN string

	// PostgresSchema is the schema for the ads table.
	PostgresSchema string // default: "public"
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool   // default: false
	Host    string // default: "0.0.0.0"
	Port    int    // default: 8080
	Mode    string // "debug", "release", "test"; default: "release"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:     envBoolOr("RADAR_HEADLESS", true),
			MaxPages:     envIntOr("RADAR_MAX_PAGES", 4),
			DefaultProxy: os.Getenv("RADAR_PROXY"),
			NoSandbox:    envBoolOr("RADAR_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("RADAR_BROWSER_BIN"),
			BlockedResourceTypes: envSliceOr("RADAR_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Harvest: HarvestConfig{
			BaseURL:            envOr("RADAR_BASE_URL", "https://www.facebook.com/ads/library/"),
			Concurrency:        envIntOr("RADAR_CONCURRENCY", 2),
			RatePerMinute:      envFloatOr("RADAR_RATE_PER_MINUTE", 10),
			RetryAttempts:      envIntOr("RADAR_RETRY_ATTEMPTS", 3),
			RetryDelay:         envDurationOr("RADAR_RETRY_DELAY", 5*time.Second),
			NavigationTimeout:  envDurationOr("RADAR_NAV_TIMEOUT", 60*time.Second),
			QueryBudget:        envDurationOr("RADAR_QUERY_BUDGET", 5*time.Minute),
			MaxRecordsPerQuery: envIntOr("RADAR_MAX_RECORDS", 100),
			StallThreshold:     envIntOr("RADAR_STALL_THRESHOLD", 3),
			MaxScrollRounds:    envIntOr("RADAR_MAX_SCROLL_ROUNDS", 40),
			MinScrollWait:      envDurationOr("RADAR_MIN_SCROLL_WAIT", 1500*time.Millisecond),
			MaxScrollWait:      envDurationOr("RADAR_MAX_SCROLL_WAIT", 3500*time.Millisecond),
			MinQueryDelay:      envDurationOr("RADAR_MIN_QUERY_DELAY", 2*time.Second),
			MaxQueryDelay:      envDurationOr("RADAR_MAX_QUERY_DELAY", 6*time.Second),
		},
		Delivery: DeliveryConfig{
			EndpointURL: os.Getenv("RADAR_WEBHOOK_URL"),
			Secret:      os.Getenv("RADAR_WEBHOOK_SECRET"),
			BatchSize:   envIntOr("RADAR_BATCH_SIZE", 10),
			Timeout:     envDurationOr("RADAR_DELIVERY_TIMEOUT", 30*time.Second),
			PreCheckURL: os.Getenv("RADAR_PRECHECK_URL"),
		},
		Store: StoreConfig{
			DatasetPath:    envOr("RADAR_DATASET", "dataset.jsonl"),
			PostgresDSN:    os.Getenv("RADAR_PG_DSN"),
			PostgresSchema: envOr("RADAR_PG_SCHEMA", "public"),
		},
		Server: ServerConfig{
			Enabled: envBoolOr("RADAR_STATUS_SERVER", false),
			Host:    envOr("RADAR_HOST", "0.0.0.0"),
			Port:    envIntOr("RADAR_PORT", 8080),
			Mode:    envOr("RADAR_MODE", "release"),
		},
		Log: LogConfig{
			Level:  envOr("RADAR_LOG_LEVEL", "info"),
			Format: envOr("RADAR_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
