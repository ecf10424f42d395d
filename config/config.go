// Package config reads all configuration from environment variables with
// sane defaults, so the binary runs with zero flags in a container.
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
	Detector DetectorConfig
	Registry RegistryConfig
	Cache    CacheConfig
	Sink     SinkConfig
	Log      LogConfig
}

// BrowserConfig controls the Rod browser instance and context pool.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Bin overrides the Chromium binary path.
	Bin string

	// Proxy is the proxy URL for all browser traffic.
	Proxy string

	// PoolSize is the browser context pool capacity. Zero means "match
	// detector concurrency".
	PoolSize int

	// BlockedResourceTypes lists resource types to block during probes.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// DetectorConfig controls the detection pipeline.
type DetectorConfig struct {
	// Concurrency is the number of sites in flight at once.
	Concurrency int // default: 4

	// StaticOnly disables the browser stages entirely.
	StaticOnly bool // default: false

	// PageLoadTimeout caps page navigation plus DOM settling.
	PageLoadTimeout time.Duration // default: 30s

	// ClickSettleTimeout is how long a click gets to cause a popup or
	// navigation before falling through to the network sniff.
	ClickSettleTimeout time.Duration // default: 3s

	// SiteDeadline caps the wall-clock time per site across all stages.
	SiteDeadline time.Duration // default: 90s

	// RatePerSec throttles site starts; zero disables the limiter.
	RatePerSec float64 // default: 0

	// MemoryTTL is how long a terminal verdict for a host is remembered.
	MemoryTTL time.Duration // default: 24h
}

// RegistryConfig controls the signature registry.
type RegistryConfig struct {
	// File is an optional JSON signature file layered over the
	// built-in table.
	File string
}

// CacheConfig controls the outcome cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached outcomes.
	MaxEntries int // default: 1000
}

// SinkConfig controls where outcomes go.
type SinkConfig struct {
	// OutputPath is the JSONL output file; "-" means stdout.
	OutputPath string // default: "-"

	// SQLitePath, when set, also appends outcomes to this database.
	SQLitePath string

	// WebhookURL, when set, posts events to this endpoint.
	WebhookURL string

	// WebhookSecret signs webhook bodies with HMAC-SHA256.
	WebhookSecret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	cfg := &Config{
		Browser: BrowserConfig{
			Headless:  envBoolOr("BOOKSCAN_HEADLESS", true),
			NoSandbox: envBoolOr("BOOKSCAN_NO_SANDBOX", false),
			Bin:       os.Getenv("BOOKSCAN_BROWSER_BIN"),
			Proxy:     os.Getenv("BOOKSCAN_PROXY"),
			PoolSize:  envIntOr("BOOKSCAN_POOL_SIZE", 0),
			BlockedResourceTypes: envSliceOr("BOOKSCAN_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Detector: DetectorConfig{
			Concurrency:        envIntOr("BOOKSCAN_CONCURRENCY", 4),
			StaticOnly:         envBoolOr("BOOKSCAN_STATIC_ONLY", false),
			PageLoadTimeout:    envDurationOr("BOOKSCAN_PAGE_LOAD_TIMEOUT", 30*time.Second),
			ClickSettleTimeout: envDurationOr("BOOKSCAN_CLICK_SETTLE_TIMEOUT", 3*time.Second),
			SiteDeadline:       envDurationOr("BOOKSCAN_SITE_DEADLINE", 90*time.Second),
			RatePerSec:         envFloatOr("BOOKSCAN_RATE_PER_SEC", 0),
			MemoryTTL:          envDurationOr("BOOKSCAN_MEMORY_TTL", 24*time.Hour),
		},
		Registry: RegistryConfig{
			File: os.Getenv("BOOKSCAN_REGISTRY_FILE"),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("BOOKSCAN_CACHE_MAX_ENTRIES", 1000),
		},
		Sink: SinkConfig{
			OutputPath:    envOr("BOOKSCAN_OUTPUT", "-"),
			SQLitePath:    os.Getenv("BOOKSCAN_SQLITE_PATH"),
			WebhookURL:    os.Getenv("BOOKSCAN_WEBHOOK_URL"),
			WebhookSecret: os.Getenv("BOOKSCAN_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("BOOKSCAN_LOG_LEVEL", "info"),
			Format: envOr("BOOKSCAN_LOG_FORMAT", "json"),
		},
	}
	if cfg.Browser.PoolSize <= 0 {
		cfg.Browser.PoolSize = cfg.Detector.Concurrency
	}
	return cfg
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
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
