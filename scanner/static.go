// Package scanner inspects HTML for booking-engine evidence without a
// browser: the static scan over fetched HTML, the late fallback scans over
// rendered HTML, and the contact extraction pass.
package scanner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/roomsage/bookscan/registry"
)

// Hit is a successful scan: the registry match plus the document reference
// (href/src) that produced it, which doubles as the booking URL.
type Hit struct {
	Match     *registry.Match
	SourceURL string
}

// ScanStatic scans fetched HTML in priority order: anchor href, iframe src,
// inline script text. The first registry match wins. A nil return with nil
// error is a definitive no-match, not a failure.
func ScanStatic(htmlStr string, reg *registry.Snapshot) (*Hit, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil, err
	}

	var hit *Hit

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if m := reg.MatchURL(href); m != nil {
			hit = &Hit{Match: m, SourceURL: strings.TrimSpace(href)}
			return false
		}
		return true
	})
	if hit != nil {
		return hit, nil
	}

	doc.Find("iframe[src], frame[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		if m := reg.MatchURL(src); m != nil {
			hit = &Hit{Match: m, SourceURL: strings.TrimSpace(src)}
			return false
		}
		return true
	})
	if hit != nil {
		return hit, nil
	}

	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if text == "" {
			return true
		}
		if m := reg.MatchText(text); m != nil {
			hit = &Hit{Match: m}
			return false
		}
		return true
	})

	return hit, nil
}
