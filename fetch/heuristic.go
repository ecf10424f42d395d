package fetch

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var reNoscriptJS = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

// NeedsBrowser guesses whether the fetched HTML is a JS shell that cannot
// be judged statically (empty SPA roots, noscript warnings, script-heavy
// pages with almost no visible text).
func NeedsBrowser(htmlStr string) bool {
	visible := VisibleText(htmlStr)
	if len(visible) < 200 {
		return true
	}

	lower := strings.ToLower(htmlStr)

	for _, root := range []string{
		`<div id="root"></div>`,
		`<div id="app"></div>`,
		`<div id="__next"></div>`,
	} {
		if strings.Contains(lower, root) {
			return true
		}
	}

	if reNoscriptJS.MatchString(lower) {
		return true
	}

	if strings.Count(lower, "<script") > 10 && len(visible) < 500 {
		return true
	}

	return false
}

// VisibleText extracts the text inside <body>, skipping script, style and
// noscript content. Used for heuristics and the location check only.
func VisibleText(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "body":
				inBody = true
			case "script", "style", "noscript":
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
