package scanner

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/roomsage/bookscan/registry"
)

var frameSelector = cascadia.MustCompile("iframe, frame")

// ScanFrames re-scans the fully rendered DOM for frames injected after
// load. It runs only when every earlier stage came up empty.
func ScanFrames(renderedHTML string, reg *registry.Snapshot) *Hit {
	doc, err := html.Parse(strings.NewReader(renderedHTML))
	if err != nil {
		return nil
	}

	for _, node := range cascadia.QueryAll(doc, frameSelector) {
		for _, attr := range node.Attr {
			if attr.Key != "src" && attr.Key != "data-src" {
				continue
			}
			if m := reg.MatchURL(attr.Val); m != nil {
				return &Hit{Match: m, SourceURL: strings.TrimSpace(attr.Val)}
			}
		}
	}
	return nil
}

// ScanKeywords is the last resort: a raw text scan of the rendered HTML
// against registry domains and keywords.
func ScanKeywords(renderedHTML string, reg *registry.Snapshot) *Hit {
	if m := reg.MatchText(renderedHTML); m != nil {
		return &Hit{Match: m}
	}
	return nil
}
