package detect

import "strings"

// FilterVersion identifies the compiled-in skip table.
const FilterVersion = "filters-2026.08"

// chainDomains are hotel-chain corporate sites: they run proprietary
// central reservation systems and are never qualified leads.
var chainDomains = map[string]struct{}{
	"marriott.com":       {},
	"hilton.com":         {},
	"ihg.com":            {},
	"hyatt.com":          {},
	"wyndhamhotels.com":  {},
	"choicehotels.com":   {},
	"bestwestern.com":    {},
	"accor.com":          {},
	"all.accor.com":      {},
	"radissonhotels.com": {},
	"fourseasons.com":    {},
	"ritzcarlton.com":    {},
	"motel6.com":         {},
	"super8.com":         {},
	"daysinn.com":        {},
	"lq.com":             {},
	"redroof.com":        {},
	"drurhotels.com":     {},
	"omnihotels.com":     {},
}

// junkDomains are hosts that appear as candidate URLs or external links
// but can never be a business's booking engine.
var junkDomains = map[string]struct{}{
	"facebook.com":   {},
	"instagram.com":  {},
	"twitter.com":    {},
	"x.com":          {},
	"youtube.com":    {},
	"linkedin.com":   {},
	"pinterest.com":  {},
	"tiktok.com":     {},
	"google.com":     {},
	"goo.gl":         {},
	"yelp.com":       {},
	"wikipedia.org":  {},
	"wordpress.org":  {},
	"squareup.com":   {},
	"paypal.com":     {},
	"mailchimp.com":  {},
	"eventbrite.com": {},
}

// Filters is the shared, versioned skip table. It is consulted only by
// the precheck (and by the simulator's external-link ranking), never
// duplicated per component.
type Filters struct {
	version string
	chains  map[string]struct{}
	junk    map[string]struct{}
}

// DefaultFilters returns the compiled-in table.
func DefaultFilters() *Filters {
	return &Filters{
		version: FilterVersion,
		chains:  chainDomains,
		junk:    junkDomains,
	}
}

// Version returns the filter table version.
func (f *Filters) Version() string { return f.version }

// ChainHost reports whether the host belongs to a known hotel chain.
func (f *Filters) ChainHost(host string) bool {
	return suffixMember(f.chains, host)
}

// JunkHost reports whether the host is a social/utility/government site
// that can never be a booking engine.
func (f *Filters) JunkHost(host string) bool {
	host = strings.ToLower(host)
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".mil") {
		return true
	}
	return suffixMember(f.junk, host)
}

// suffixMember walks the host label by label, so "m.facebook.com" hits
// the "facebook.com" entry.
func suffixMember(set map[string]struct{}, host string) bool {
	host = strings.ToLower(host)
	for h := host; h != ""; {
		if _, ok := set[h]; ok {
			return true
		}
		idx := strings.IndexByte(h, '.')
		if idx < 0 {
			return false
		}
		h = h[idx+1:]
	}
	return false
}
