package detect

import (
	"context"
	"log/slog"
	"time"

	"github.com/roomsage/bookscan/browser"
	"github.com/roomsage/bookscan/models"
	"github.com/roomsage/bookscan/registry"
)

// ProbeSignals is everything the browser stage observed about a site.
// The classifier turns it into a verdict; the prober never decides.
type ProbeSignals struct {
	// Resolved is the best ranked candidate whose href already answered
	// the question (registry match or external registrable domain), or
	// nil when only a click can tell.
	Resolved *browser.Candidate
	// Click is the effect of activating the best candidate. Nil when no
	// candidate was clickable.
	Click *browser.ClickResult
	// ClickErr is a non-fatal stage error (element vanished, click
	// rejected). The probe still returns its network observations.
	ClickErr error

	// LoadRequests and ClickRequests are every request URL seen before
	// and after the click boundary.
	LoadRequests  []string
	ClickRequests []string

	// RenderedHTML is the DOM after load (and after the click settled),
	// for the iframe and keyword fallbacks.
	RenderedHTML string
}

// Prober runs the browser stage for one site.
type Prober interface {
	Probe(ctx context.Context, pageURL string, reg *registry.Snapshot) (*ProbeSignals, error)
}

// ProbeConfig bounds the browser stage.
type ProbeConfig struct {
	PageLoadTimeout    time.Duration
	ClickSettleTimeout time.Duration
	BlockResources     []string
}

// rodProber drives a pooled browser context through load, click and
// observe. Every exit path releases the context back to the pool; a
// navigation failure marks the context unhealthy so the pool can retire
// it if the failures accumulate.
type rodProber struct {
	sessions *browser.Sessions
	filters  *Filters
	cfg      ProbeConfig
	log      *slog.Logger
}

// NewProber wraps a browser session pool as a Prober.
func NewProber(sessions *browser.Sessions, filters *Filters, cfg ProbeConfig, log *slog.Logger) Prober {
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = 30 * time.Second
	}
	if cfg.ClickSettleTimeout <= 0 {
		cfg.ClickSettleTimeout = 3 * time.Second
	}
	return &rodProber{sessions: sessions, filters: filters, cfg: cfg, log: log}
}

func (p *rodProber) Probe(ctx context.Context, pageURL string, reg *registry.Snapshot) (*ProbeSignals, error) {
	handle, err := p.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	healthy := true
	defer func() { p.sessions.Release(handle, healthy) }()

	page := handle.Page()
	observer := browser.Observe(page, p.cfg.BlockResources)
	defer observer.Stop()

	if err := browser.Navigate(ctx, page, pageURL, p.cfg.PageLoadTimeout); err != nil {
		healthy = false
		return nil, err
	}

	rendered, err := browser.RenderedHTML(ctx, page)
	if err != nil {
		healthy = false
		return nil, models.NewDetectError(models.ErrCodeNavigation, "rendered DOM unavailable", err)
	}

	signals := &ProbeSignals{RenderedHTML: rendered}

	candidates := browser.RankCandidates(rendered, pageURL, reg, p.filters.JunkHost)
	if len(candidates) == 0 {
		signals.LoadRequests, signals.ClickRequests = observer.Requests()
		return signals, nil
	}

	best := candidates[0]
	if best.Priority <= browser.PriorityExternalHref && best.Href != "" {
		// The href itself is the answer; no click needed.
		signals.Resolved = &best
		signals.LoadRequests, signals.ClickRequests = observer.Requests()
		return signals, nil
	}

	observer.MarkClick()
	result, clickErr := p.sessions.ClickAndObserve(ctx, page, best, p.cfg.ClickSettleTimeout)
	if clickErr != nil {
		p.log.Debug("click stage failed, keeping network evidence",
			"url", pageURL, "candidate", best.Text, "error", clickErr)
		signals.ClickErr = clickErr
	} else {
		signals.Click = &result
	}

	// The click may have replaced the DOM; prefer the post-click state
	// for the fallback scans when the page is still on the same origin.
	if result.Kind == browser.ClickNone {
		if html, err := browser.RenderedHTML(ctx, page); err == nil {
			signals.RenderedHTML = html
		}
	}

	signals.LoadRequests, signals.ClickRequests = observer.Requests()
	return signals, nil
}
