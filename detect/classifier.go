package detect

import (
	"net/url"
	"strings"

	"github.com/roomsage/bookscan/browser"
	"github.com/roomsage/bookscan/models"
	"github.com/roomsage/bookscan/registry"
	"github.com/roomsage/bookscan/scanner"
)

// Verdict is a classification: which engine, how it was found, and
// whether a human should double-check it.
type Verdict struct {
	EngineName   string
	EngineDomain string
	BookingURL   string
	Tier         int
	Method       models.DetectionMethod
	NeedsReview  bool
}

// Signals is the full evidence set for one site: what the static scan
// saw in fetched HTML plus what the browser probe observed. Probe may be
// nil in static-only mode.
type Signals struct {
	PageURL   string
	StaticHit *scanner.Hit
	Probe     *ProbeSignals
}

// Classify turns evidence into a verdict. Evidence is consulted in a
// fixed order, strongest first, and the first conclusive signal wins:
//
//  1. static HTML hit
//  2. resolved candidate href (registry match, then unknown external)
//  3. click caused a navigation
//  4. click opened a popup
//  5. network sniff, load phase then click phase
//  6. iframe scan of the rendered DOM
//  7. keyword fallback over rendered text
//
// A navigation outranks the click-phase sniff: the page the user lands
// on names the engine more reliably than background beacons fired
// during the click.
func Classify(sig *Signals, reg *registry.Snapshot, filters *Filters) Verdict {
	if sig.StaticHit != nil {
		return verdictFromMatch(sig.StaticHit.Match, sig.StaticHit.SourceURL, models.MethodStaticHTML)
	}

	p := sig.Probe
	if p == nil {
		return Verdict{Method: models.MethodNoneFound}
	}

	if p.Resolved != nil {
		if p.Resolved.Match != nil {
			return verdictFromMatch(p.Resolved.Match, p.Resolved.Href, models.MethodStaticHTML)
		}
		// External href to a domain the registry does not know: report
		// it as an unknown engine so curation can pick it up.
		return unknownEngineVerdict(p.Resolved.Href, models.MethodStaticHTML)
	}

	if p.Click != nil && p.Click.Kind != browser.ClickNone {
		method := models.MethodClickNavigation
		if p.Click.Kind == browser.ClickPopup {
			method = models.MethodClickPopup
		}
		if v, ok := classifyDestination(p.Click.URL, sig.PageURL, method, reg, filters); ok {
			return v
		}
	}

	if v, ok := sniffRequests(p.LoadRequests, models.MethodNetworkOnLoad, reg); ok {
		return v
	}
	if v, ok := sniffRequests(p.ClickRequests, models.MethodNetworkOnClick, reg); ok {
		return v
	}

	if hit := scanner.ScanFrames(p.RenderedHTML, reg); hit != nil {
		return verdictFromMatch(hit.Match, hit.SourceURL, models.MethodIframeScan)
	}
	if hit := scanner.ScanKeywords(p.RenderedHTML, reg); hit != nil {
		v := verdictFromMatch(hit.Match, hit.SourceURL, models.MethodKeywordFallback)
		// Keyword evidence without a URL is the weakest signal kept.
		v.NeedsReview = true
		return v
	}

	return Verdict{Method: models.MethodNoneFound}
}

func verdictFromMatch(m *registry.Match, bookingURL string, method models.DetectionMethod) Verdict {
	return Verdict{
		EngineName:   m.Entry.Name,
		EngineDomain: m.Domain,
		BookingURL:   bookingURL,
		Tier:         m.Entry.Tier,
		Method:       method,
	}
}

// classifyDestination judges the URL a click landed on. A registry match
// is conclusive; a cross-origin non-junk destination is an unknown
// engine worth flagging; a same-origin destination proves nothing on
// its own, so the caller falls through to the network sniff.
func classifyDestination(dest, pageURL string, method models.DetectionMethod, reg *registry.Snapshot, filters *Filters) (Verdict, bool) {
	if dest == "" {
		return Verdict{}, false
	}
	if m := reg.MatchURL(dest); m != nil {
		return verdictFromMatch(m, dest, method), true
	}

	destHost := hostname(dest)
	if destHost == "" || filters.JunkHost(destHost) {
		return Verdict{}, false
	}
	if browser.RegistrableDomain(destHost) == browser.RegistrableDomain(hostname(pageURL)) {
		return Verdict{}, false
	}
	return unknownEngineVerdict(dest, method), true
}

// sniffRequests matches recorded request URLs against the registry,
// keeping whichever entry appears first.
func sniffRequests(requests []string, method models.DetectionMethod, reg *registry.Snapshot) (Verdict, bool) {
	for _, u := range requests {
		if m := reg.MatchURL(u); m != nil {
			return verdictFromMatch(m, u, method), true
		}
	}
	return Verdict{}, false
}

// unknownEngineVerdict reports a booking destination the registry does
// not know: the registrable domain stands in for the engine name and the
// outcome is flagged for curation.
func unknownEngineVerdict(bookingURL string, method models.DetectionMethod) Verdict {
	host := hostname(bookingURL)
	name := browser.RegistrableDomain(host)
	if name == "" {
		name = host
	}
	return Verdict{
		EngineName:   name,
		EngineDomain: name,
		BookingURL:   bookingURL,
		Tier:         registry.TierUnknown,
		Method:       method,
		NeedsReview:  true,
	}
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
