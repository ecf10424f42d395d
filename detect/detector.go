// Package detect runs the classification pipeline: precheck, static scan,
// browser probe, classification, and the batch coordinator that fans sites
// out under bounded concurrency.
package detect

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roomsage/bookscan/browser"
	"github.com/roomsage/bookscan/cache"
	"github.com/roomsage/bookscan/fetch"
	"github.com/roomsage/bookscan/models"
	"github.com/roomsage/bookscan/registry"
	"github.com/roomsage/bookscan/scanner"
	"github.com/roomsage/bookscan/simhash"
)

// fingerprintThreshold is the max simhash hamming distance at which two
// pages are treated as the same template (multi-domain duplicates of one
// property site).
const fingerprintThreshold = 3

// Detector classifies a single site. It is safe for concurrent use; the
// coordinator shares one Detector across all workers.
type Detector struct {
	fetcher  *fetch.Client
	registry *registry.Store
	filters  *Filters
	memory   *Memory
	cache    *cache.Cache
	prober   Prober // nil in static-only mode
	log      *slog.Logger
}

// NewDetector wires the pipeline. prober may be nil, in which case only
// the fetch-based stages run.
func NewDetector(fetcher *fetch.Client, store *registry.Store, filters *Filters, memory *Memory, c *cache.Cache, prober Prober, log *slog.Logger) *Detector {
	return &Detector{
		fetcher:  fetcher,
		registry: store,
		filters:  filters,
		memory:   memory,
		cache:    c,
		prober:   prober,
		log:      log,
	}
}

// Detect runs the full pipeline for one site and always returns an
// outcome: positive, negative (none_found) or failed. It never returns
// an error; failures are encoded in the outcome so batch processing
// stays uniform.
func (d *Detector) Detect(ctx context.Context, site models.SiteDescriptor) *models.DetectionOutcome {
	start := time.Now()
	reg := d.registry.Snapshot()

	outcome := &models.DetectionOutcome{
		SiteID:          site.ID,
		SiteName:        site.Name,
		URL:             site.URL,
		Method:          models.MethodNoneFound,
		RegistryVersion: reg.Version(),
	}
	defer func() {
		outcome.DetectedAt = time.Now().UTC()
		outcome.DurationMs = time.Since(start).Milliseconds()
	}()

	pre, err := d.Precheck(ctx, site)
	if err != nil {
		d.recordFailure(outcome, site, err)
		return outcome
	}
	outcome.URL = pre.URL

	key := cache.Key(pre.URL, reg.Version())
	if cached, ok := d.cache.Get(key); ok {
		copyVerdict(outcome, cached)
		return outcome
	}

	outcome.Contact = scanner.ExtractContacts(pre.Page.HTML)

	fp := simhash.Fingerprint(pre.Page.HTML)
	if cached, ok := d.cache.FindByFingerprint(fp, fingerprintThreshold, simhash.Distance); ok {
		d.log.Debug("duplicate page template, reusing verdict",
			"url", pre.URL, "matched_url", cached.URL)
		copyVerdict(outcome, cached)
		d.cache.Set(key, outcome, fp)
		return outcome
	}

	signals := &Signals{PageURL: pre.URL}

	hit, scanErr := scanner.ScanStatic(pre.Page.HTML, reg)
	if scanErr != nil {
		// Not fatal: the probe and fallback scans still run on this page.
		d.log.Warn("static scan failed", "site_id", site.ID, "url", pre.URL, "error", scanErr)
	}
	signals.StaticHit = hit

	if signals.StaticHit == nil {
		// A fully static page whose best booking control already carries
		// an external href resolves without spending a browser context.
		if d.prober != nil && !fetch.NeedsBrowser(pre.Page.HTML) {
			cands := browser.RankCandidates(pre.Page.HTML, pre.URL, reg, d.filters.JunkHost)
			if len(cands) > 0 && cands[0].Priority <= browser.PriorityExternalHref && cands[0].Href != "" {
				signals.Probe = &ProbeSignals{Resolved: &cands[0], RenderedHTML: pre.Page.HTML}
			}
		}
	}

	if signals.StaticHit == nil && signals.Probe == nil {
		if d.prober != nil {
			probe, err := d.prober.Probe(ctx, pre.URL, reg)
			if err != nil {
				d.recordFailure(outcome, site, err)
				return outcome
			}
			signals.Probe = probe
		} else {
			// Static-only mode: the fetched HTML stands in for the
			// rendered DOM so the fallback scans still run.
			signals.Probe = &ProbeSignals{RenderedHTML: pre.Page.HTML}
		}
	}

	v := Classify(signals, reg, d.filters)
	outcome.EngineName = v.EngineName
	outcome.EngineDomain = v.EngineDomain
	outcome.BookingURL = v.BookingURL
	outcome.Tier = v.Tier
	outcome.Method = v.Method
	outcome.NeedsReview = v.NeedsReview

	d.cache.Set(key, outcome, fp)
	return outcome
}

// recordFailure encodes err into the outcome and, for terminal codes,
// condemns the host in memory so retries and duplicates skip it.
func (d *Detector) recordFailure(outcome *models.DetectionOutcome, site models.SiteDescriptor, err error) {
	var de *models.DetectError
	if !errors.As(err, &de) {
		de = models.NewDetectError(models.ErrCodeInternal, "unclassified failure", err)
	}
	outcome.Error = de.ToDetail()

	if de.Terminal() {
		if _, host, nerr := NormalizeURL(site.URL); nerr == nil {
			d.memory.Set(host, de.Code)
		}
	}

	d.log.Warn("site failed",
		"site_id", site.ID, "url", site.URL, "code", de.Code, "error", de.Message)
}

// copyVerdict carries a cached verdict onto a fresh outcome without
// touching the new site's identity fields or contacts.
func copyVerdict(dst, src *models.DetectionOutcome) {
	dst.EngineName = src.EngineName
	dst.EngineDomain = src.EngineDomain
	dst.BookingURL = src.BookingURL
	dst.Tier = src.Tier
	dst.Method = src.Method
	dst.NeedsReview = src.NeedsReview
	if dst.Contact == (models.Contact{}) {
		dst.Contact = src.Contact
	}
}
