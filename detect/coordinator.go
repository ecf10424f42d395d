package detect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/roomsage/bookscan/models"
)

// OutcomeSink receives outcomes as they are produced. Implementations
// need not be concurrency-safe; the coordinator serializes writes.
type OutcomeSink interface {
	Write(ctx context.Context, outcome *models.DetectionOutcome) error
}

// Summary tallies one batch.
type Summary struct {
	Total     int
	Found     int
	NoneFound int
	Terminal  int
	Retriable int
}

// CoordinatorConfig bounds a batch run.
type CoordinatorConfig struct {
	// Concurrency is the number of sites in flight at once.
	Concurrency int
	// SiteDeadline caps the wall-clock time spent on one site across
	// all stages.
	SiteDeadline time.Duration
	// RatePerSec throttles site starts; zero means unthrottled.
	RatePerSec float64
}

// Coordinator fans a batch of sites out over a shared Detector under a
// semaphore, applies the per-site deadline, and streams outcomes to the
// sink in completion order.
type Coordinator struct {
	detector *Detector
	cfg      CoordinatorConfig
	limiter  *rate.Limiter
	log      *slog.Logger
}

// NewCoordinator builds a Coordinator around a shared Detector.
func NewCoordinator(d *Detector, cfg CoordinatorConfig, log *slog.Logger) *Coordinator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.SiteDeadline <= 0 {
		cfg.SiteDeadline = 90 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	return &Coordinator{detector: d, cfg: cfg, limiter: limiter, log: log}
}

// Run processes every site and returns the batch summary. It stops
// early only when ctx is cancelled; individual failures never abort the
// batch. Sink errors are logged and counted against nothing: losing one
// write must not discard the remaining work.
func (c *Coordinator) Run(ctx context.Context, sites []models.SiteDescriptor, sink OutcomeSink) (Summary, error) {
	start := time.Now()
	sem := make(chan struct{}, c.cfg.Concurrency)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		sum    Summary
		ctxErr error
	)
	sum.Total = len(sites)

	for _, site := range sites {
		if err := c.pace(ctx); err != nil {
			ctxErr = err
			break
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			ctxErr = ctx.Err()
		}
		if ctxErr != nil {
			break
		}

		wg.Add(1)
		go func(site models.SiteDescriptor) {
			defer wg.Done()
			defer func() { <-sem }()

			siteCtx, cancel := context.WithTimeout(ctx, c.cfg.SiteDeadline)
			defer cancel()

			outcome := c.detector.Detect(siteCtx, site)

			mu.Lock()
			defer mu.Unlock()
			c.tally(&sum, outcome)
			if err := sink.Write(ctx, outcome); err != nil {
				c.log.Error("sink write failed", "site_id", site.ID, "error", err)
			}
		}(site)
	}

	wg.Wait()

	c.log.Info("batch complete",
		"total", sum.Total,
		"found", sum.Found,
		"none_found", sum.NoneFound,
		"terminal", sum.Terminal,
		"retriable", sum.Retriable,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return sum, ctxErr
}

func (c *Coordinator) pace(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Coordinator) tally(sum *Summary, o *models.DetectionOutcome) {
	switch {
	case o.Failed():
		de := models.DetectError{Code: o.Error.Code}
		if de.Terminal() {
			sum.Terminal++
		} else {
			sum.Retriable++
		}
	case o.Found():
		sum.Found++
	default:
		sum.NoneFound++
	}
}
