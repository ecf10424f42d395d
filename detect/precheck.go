package detect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/roomsage/bookscan/fetch"
	"github.com/roomsage/bookscan/models"
)

// PrecheckResult carries everything the cheap HTTP stage learned, so the
// browser stage never re-fetches.
type PrecheckResult struct {
	// URL is the normalized input URL.
	URL string
	// Host is the lowercased hostname of the normalized URL.
	Host string
	// Page is the fetched document.
	Page *fetch.Page
}

// Precheck validates and fetches a site before any browser context is
// spent on it. It fails terminally for malformed URLs, chain sites, junk
// domains and hosts the memory already condemned; it fails retriably
// when the site is unreachable within the deadline.
func (d *Detector) Precheck(ctx context.Context, site models.SiteDescriptor) (*PrecheckResult, error) {
	normalized, host, err := NormalizeURL(site.URL)
	if err != nil {
		return nil, models.NewDetectError(models.ErrCodePrecheck, "malformed URL", err)
	}

	if d.filters.ChainHost(host) {
		return nil, models.NewDetectError(models.ErrCodeSkipChain,
			fmt.Sprintf("chain property host %s", host), nil)
	}
	if d.filters.JunkHost(host) {
		return nil, models.NewDetectError(models.ErrCodeSkipJunkDomain,
			fmt.Sprintf("junk host %s", host), nil)
	}

	if code := d.memory.Get(host); code != "" {
		return nil, models.NewDetectError(code,
			fmt.Sprintf("host %s remembered as %s", host, code), nil)
	}

	page, err := d.fetcher.Fetch(ctx, normalized)
	if err != nil {
		if ctx.Err() != nil {
			return nil, models.NewDetectError(models.ErrCodeTimeout, "fetch deadline exceeded", err)
		}
		return nil, models.NewDetectError(models.ErrCodePrecheck, "site unreachable", err)
	}

	if site.Name != "" && !nameOnPage(site.Name, page) {
		return nil, models.NewDetectError(models.ErrCodeLocationMismatch,
			fmt.Sprintf("page does not mention %q", site.Name), nil)
	}

	return &PrecheckResult{URL: normalized, Host: host, Page: page}, nil
}

// NormalizeURL coerces bare domains to https, lowercases the host and
// rejects inputs that cannot name a website.
func NormalizeURL(raw string) (normalized, host string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("empty URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" || !strings.Contains(u.Hostname(), ".") {
		return "", "", fmt.Errorf("no usable host in %q", raw)
	}
	u.Host = strings.ToLower(u.Host)
	return u.String(), u.Hostname(), nil
}

// nameOnPage checks that the business name plausibly belongs to the
// fetched page. Matching is token-based: enough significant name tokens
// must appear in the title or visible text. Sites fail this when a
// stale directory URL now points at an unrelated business.
func nameOnPage(name string, page *fetch.Page) bool {
	tokens := significantTokens(name)
	if len(tokens) == 0 {
		return true
	}

	haystack := strings.ToLower(page.Title + " " + fetch.VisibleText(page.HTML))
	found := 0
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			found++
		}
	}
	// Half the tokens is enough: "The Maple Inn B&B" still matches a
	// page that says only "Maple Inn".
	return found*2 >= len(tokens)
}

// fillerWords are name tokens that match almost any hospitality page and
// carry no identity.
var fillerWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "of": {}, "at": {}, "on": {},
	"inn": {}, "hotel": {}, "motel": {}, "lodge": {}, "resort": {},
	"suites": {}, "cabins": {}, "b&b": {}, "bnb": {}, "llc": {}, "inc": {},
}

func significantTokens(name string) []string {
	var out []string
	for _, t := range strings.Fields(strings.ToLower(name)) {
		t = strings.Trim(t, ".,;:!?\"'()")
		if t == "" {
			continue
		}
		if _, filler := fillerWords[t]; filler {
			continue
		}
		out = append(out, t)
	}
	return out
}
