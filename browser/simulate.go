package browser

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/net/publicsuffix"

	"github.com/roomsage/bookscan/models"
	"github.com/roomsage/bookscan/registry"
)

// Candidate priorities, best first.
const (
	PriorityRegistryHref = 0 // href already matches a registry domain
	PriorityExternalHref = 1 // href to any external registrable domain
	PriorityStrongPhrase = 2 // visible text with strong booking intent
	PriorityWeakPhrase   = 3 // weaker reservation phrasing
)

var strongPhrases = []string{
	"book now", "book online", "book your stay", "book direct",
	"reserve now", "reserve your room", "make a reservation",
	"check availability", "check rates",
}

var weakPhrases = []string{
	"reservations", "reservation", "reserve", "availability",
	"book", "rates", "stay with us",
}

// Candidate is one ranked book-now control.
type Candidate struct {
	Priority int
	Text     string
	// Href is the absolute target, empty when the control has no usable
	// link. RawHref keeps the attribute value as written for element
	// lookup in the live DOM.
	Href    string
	RawHref string
	// Match is set for PriorityRegistryHref candidates.
	Match *registry.Match
}

// RankCandidates harvests booking controls from rendered HTML and ranks
// them P0–P3. junkHost filters externals that are never booking engines
// (social, map embeds); it may be nil.
func RankCandidates(htmlStr, pageURL string, reg *registry.Snapshot, junkHost func(host string) bool) []Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil
	}

	base, _ := url.Parse(pageURL)
	siteDomain := RegistrableDomain(hostOf(base))

	var out []Candidate

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		raw, _ := sel.Attr("href")
		text := normalizeText(sel.Text())
		if text == "" {
			text = normalizeText(sel.AttrOr("aria-label", sel.AttrOr("title", "")))
		}

		abs := resolveHref(base, raw)
		if abs != "" {
			if m := reg.MatchURL(abs); m != nil {
				out = append(out, Candidate{Priority: PriorityRegistryHref, Text: text, Href: abs, RawHref: raw, Match: m})
				return
			}
			host := hostOfRaw(abs)
			if host != "" && siteDomain != "" && RegistrableDomain(host) != siteDomain {
				if junkHost == nil || !junkHost(host) {
					out = append(out, Candidate{Priority: PriorityExternalHref, Text: text, Href: abs, RawHref: raw})
					return
				}
			}
		}

		if p, ok := phrasePriority(text); ok {
			out = append(out, Candidate{Priority: p, Text: text, Href: abs, RawHref: raw})
		}
	})

	doc.Find(`button, input[type="button"], input[type="submit"]`).Each(func(_ int, sel *goquery.Selection) {
		text := normalizeText(sel.Text())
		if text == "" {
			text = normalizeText(sel.AttrOr("value", sel.AttrOr("aria-label", "")))
		}
		if p, ok := phrasePriority(text); ok {
			out = append(out, Candidate{Priority: p, Text: text})
		}
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func phrasePriority(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	for _, p := range strongPhrases {
		if strings.Contains(text, p) {
			return PriorityStrongPhrase, true
		}
	}
	for _, p := range weakPhrases {
		if strings.Contains(text, p) {
			return PriorityWeakPhrase, true
		}
	}
	return 0, false
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func resolveHref(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" ||
		strings.HasPrefix(raw, "javascript:") ||
		strings.HasPrefix(raw, "mailto:") ||
		strings.HasPrefix(raw, "tel:") {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

func hostOf(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Hostname()
}

func hostOfRaw(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// RegistrableDomain reduces a host to its eTLD+1 so www/apex/subdomain
// variants of one site compare equal. Hosts the PSL cannot place (IPs,
// localhost) fall back to the host itself.
func RegistrableDomain(host string) string {
	if host == "" {
		return ""
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

// ClickKind describes what a simulated click produced.
type ClickKind int

const (
	ClickNone ClickKind = iota
	ClickPopup
	ClickNavigation
)

// ClickResult captures the observable effect of activating a candidate.
type ClickResult struct {
	Kind ClickKind
	URL  string
}

// ClickAndObserve activates the candidate element and waits up to settle
// for a popup, a same-page navigation, or neither (widget-driven page).
// A missing element is a stage error, not a verdict; the caller logs it
// and falls through to network observation.
func (s *Sessions) ClickAndObserve(ctx context.Context, page *rod.Page, cand Candidate, settle time.Duration) (ClickResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, settle)
	defer cancel()

	startURL := stripFragment(CurrentURL(ctx, page))

	popupCh := make(chan string, 1)
	go s.watchPopups(waitCtx, page, popupCh)

	el, err := findCandidateElement(waitCtx, page, cand)
	if err != nil {
		return ClickResult{Kind: ClickNone}, models.NewDetectError(models.ErrCodeInternal, "candidate element not found", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return ClickResult{Kind: ClickNone}, models.NewDetectError(models.ErrCodeInternal, "candidate click failed", err)
	}

	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case u := <-popupCh:
			return ClickResult{Kind: ClickPopup, URL: u}, nil
		case <-waitCtx.Done():
			return ClickResult{Kind: ClickNone}, nil
		case <-ticker.C:
			if cur := stripFragment(CurrentURL(ctx, page)); cur != "" && cur != startURL && cur != "about:blank" {
				return ClickResult{Kind: ClickNavigation, URL: cur}, nil
			}
		}
	}
}

// watchPopups reports the URL of a new window/tab opened by the page.
// Popups often open on about:blank first, so the target-info update is
// watched too.
func (s *Sessions) watchPopups(ctx context.Context, opener *rod.Page, out chan<- string) {
	var openedID proto.TargetTargetID

	wait := s.browser.Context(ctx).EachEvent(
		func(e *proto.TargetTargetCreated) bool {
			if e.TargetInfo.Type != "page" || e.TargetInfo.OpenerID != opener.TargetID {
				return false
			}
			if u := e.TargetInfo.URL; u != "" && u != "about:blank" {
				select {
				case out <- u:
				default:
				}
				return true
			}
			openedID = e.TargetInfo.TargetID
			return false
		},
		func(e *proto.TargetTargetInfoChanged) bool {
			if e.TargetInfo.TargetID != openedID {
				return false
			}
			if u := e.TargetInfo.URL; u != "" && u != "about:blank" {
				select {
				case out <- u:
				default:
				}
				return true
			}
			return false
		},
	)
	wait()
}

func findCandidateElement(ctx context.Context, page *rod.Page, cand Candidate) (*rod.Element, error) {
	p := page.Context(ctx)
	if cand.RawHref != "" && cand.RawHref != "#" {
		if el, err := p.Element(fmt.Sprintf(`a[href=%q]`, cand.RawHref)); err == nil {
			return el, nil
		}
	}
	if cand.Text == "" {
		return nil, fmt.Errorf("candidate has neither locatable href nor text")
	}
	return p.ElementR(`a, button, input[type="button"], input[type="submit"]`, "/"+regexp.QuoteMeta(cand.Text)+"/i")
}

func stripFragment(raw string) string {
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		return raw[:idx]
	}
	return raw
}
