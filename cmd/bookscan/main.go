package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/roomsage/bookscan/browser"
	"github.com/roomsage/bookscan/cache"
	"github.com/roomsage/bookscan/config"
	"github.com/roomsage/bookscan/detect"
	"github.com/roomsage/bookscan/fetch"
	"github.com/roomsage/bookscan/models"
	"github.com/roomsage/bookscan/registry"
	"github.com/roomsage/bookscan/sink"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: bookscan <sites.csv | sites.json>")
		os.Exit(2)
	}

	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	log := slog.Default()

	// ── 3. Load the signature registry ──────────────────────────────
	snapshot := registry.Builtin()
	if cfg.Registry.File != "" {
		loaded, err := registry.LoadFile(cfg.Registry.File)
		if err != nil {
			log.Error("failed to load registry file", "path", cfg.Registry.File, "error", err)
			os.Exit(1)
		}
		snapshot = loaded
	}
	store := registry.NewStore(snapshot)

	// ── 4. Load the site list ───────────────────────────────────────
	sites, err := loadSites(os.Args[1])
	if err != nil {
		log.Error("failed to load site list", "path", os.Args[1], "error", err)
		os.Exit(1)
	}
	log.Info("bookscan starting",
		"sites", len(sites),
		"registry_version", snapshot.Version(),
		"concurrency", cfg.Detector.Concurrency,
		"static_only", cfg.Detector.StaticOnly,
	)

	// ── 5. Launch the browser pool (unless static-only) ─────────────
	var prober detect.Prober
	if !cfg.Detector.StaticOnly {
		sessions, err := browser.NewSessions(browser.Config{
			Headless:  cfg.Browser.Headless,
			NoSandbox: cfg.Browser.NoSandbox,
			Bin:       cfg.Browser.Bin,
			Proxy:     cfg.Browser.Proxy,
			PoolSize:  cfg.Browser.PoolSize,
		})
		if err != nil {
			log.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer sessions.Close()

		prober = detect.NewProber(sessions, detect.DefaultFilters(), detect.ProbeConfig{
			PageLoadTimeout:    cfg.Detector.PageLoadTimeout,
			ClickSettleTimeout: cfg.Detector.ClickSettleTimeout,
			BlockResources:     cfg.Browser.BlockedResourceTypes,
		}, log)
	}

	// ── 6. Wire the pipeline ────────────────────────────────────────
	memory := detect.NewMemory(cfg.Detector.MemoryTTL)
	defer memory.Stop()

	detector := detect.NewDetector(
		fetch.NewClient(cfg.Browser.Proxy),
		store,
		detect.DefaultFilters(),
		memory,
		cache.New(cfg.Cache.MaxEntries),
		prober,
		log,
	)

	out, err := buildSink(cfg.Sink, log)
	if err != nil {
		log.Error("failed to open output sink", "error", err)
		os.Exit(1)
	}
	defer out.Close()

	coord := detect.NewCoordinator(detector, detect.CoordinatorConfig{
		Concurrency:  cfg.Detector.Concurrency,
		SiteDeadline: cfg.Detector.SiteDeadline,
		RatePerSec:   cfg.Detector.RatePerSec,
	}, log)

	// ── 7. Run the batch under a signal-cancelled context ───────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batchID := fmt.Sprintf("batch-%d", time.Now().Unix())
	summary, err := coord.Run(ctx, sites, out)
	if err != nil {
		log.Warn("batch interrupted", "error", err)
	}

	if cfg.Sink.WebhookURL != "" {
		notifier := sink.NewNotifier(cfg.Sink.WebhookURL, cfg.Sink.WebhookSecret, log)
		if derr := notifier.Deliver(ctx, &sink.Event{
			Type:      "batch.completed",
			BatchID:   batchID,
			Timestamp: time.Now().Unix(),
			Data:      summary,
		}); derr != nil {
			log.Warn("batch webhook failed", "error", derr)
		}
	}

	log.Info("bookscan stopped",
		"total", summary.Total,
		"found", summary.Found,
		"none_found", summary.NoneFound,
	)
	if err != nil {
		os.Exit(1)
	}
}

// buildSink assembles the configured output chain: JSONL always, SQLite
// and webhook when configured.
func buildSink(cfg config.SinkConfig, log *slog.Logger) (sink.Sink, error) {
	var sinks []sink.Sink

	var w io.Writer = os.Stdout
	if cfg.OutputPath != "" && cfg.OutputPath != "-" {
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return nil, err
		}
		w = f
	}
	sinks = append(sinks, sink.NewJSONL(w))

	if cfg.SQLitePath != "" {
		s, err := sink.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.WebhookURL != "" {
		notifier := sink.NewNotifier(cfg.WebhookURL, cfg.WebhookSecret, log)
		sinks = append(sinks, sink.NewNotifierSink(notifier, fmt.Sprintf("batch-%d", time.Now().Unix())))
	}

	return sink.NewMulti(sinks...), nil
}

// loadSites reads the site list. CSV columns are id,name,url with an
// optional header row; JSON is an array of site objects.
func loadSites(path string) ([]models.SiteDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var sites []models.SiteDescriptor
		if err := json.NewDecoder(f).Decode(&sites); err != nil {
			return nil, fmt.Errorf("parse JSON site list: %w", err)
		}
		return sites, nil
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var sites []models.SiteDescriptor
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse CSV site list: %w", err)
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("CSV row needs id,name,url: %v", rec)
		}
		// Skip a header row.
		if strings.EqualFold(strings.TrimSpace(rec[2]), "url") {
			continue
		}
		sites = append(sites, models.SiteDescriptor{
			ID:   strings.TrimSpace(rec[0]),
			Name: strings.TrimSpace(rec[1]),
			URL:  strings.TrimSpace(rec[2]),
		})
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("no sites in %s", path)
	}
	return sites, nil
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
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
