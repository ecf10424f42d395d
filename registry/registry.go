// Package registry holds the versioned booking-engine signature table.
// A Snapshot is immutable; concurrent batches each capture their own
// snapshot so a hot reload never disturbs in-flight detections.
package registry

import (
	"net/url"
	"strings"
	"sync/atomic"
)

// Tier values for a recognized engine.
const (
	TierPursue  = 1 // pursue further enrichment
	TierLow     = 2 // recognized, low priority (e.g. OTA widget)
	TierUnknown = 0 // not in the registry, flagged for curation
)

// SignatureEntry describes one booking engine: its canonical name, the
// domains it serves bookings from, and keywords that betray its embed code.
type SignatureEntry struct {
	Name     string   `json:"name"`
	Domains  []string `json:"domains"`
	Keywords []string `json:"keywords,omitempty"`
	Tier     int      `json:"tier"`
}

// Match is the result of a successful registry lookup.
type Match struct {
	Entry *SignatureEntry
	// Domain is the registry domain that matched, when the match came
	// from a host or URL rather than a keyword.
	Domain string
	// Keyword is the keyword that matched, for keyword matches.
	Keyword string
}

// Snapshot is an immutable view of the signature table.
type Snapshot struct {
	version string
	entries []SignatureEntry
	// byDomain maps every registered domain to its owning entry.
	// Suffix matching walks the host label by label, so the longest
	// registered suffix wins by construction.
	byDomain map[string]*SignatureEntry
}

// NewSnapshot builds a Snapshot from entries. Later entries win domain
// collisions, which lets a loaded file override the built-in table.
// Domains are lowercased here once, so every matcher can compare them
// against lowercased input directly.
func NewSnapshot(version string, entries []SignatureEntry) *Snapshot {
	s := &Snapshot{
		version:  version,
		entries:  make([]SignatureEntry, len(entries)),
		byDomain: make(map[string]*SignatureEntry),
	}
	copy(s.entries, entries)
	for i := range s.entries {
		e := &s.entries[i]
		domains := make([]string, len(e.Domains))
		for j, d := range e.Domains {
			domains[j] = strings.ToLower(d)
		}
		e.Domains = domains
		for _, d := range e.Domains {
			s.byDomain[d] = e
		}
	}
	return s
}

// Version returns the registry version string.
func (s *Snapshot) Version() string { return s.version }

// Entries returns the raw entry list (callers must not mutate it).
func (s *Snapshot) Entries() []SignatureEntry { return s.entries }

// MatchHost matches a hostname against registered domains. The host itself
// is tried first, then each parent suffix, so "hotels.cloudbeds.com" hits
// the "cloudbeds.com" entry. Returns nil on no match, never an error.
func (s *Snapshot) MatchHost(host string) *Match {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for h := host; h != ""; {
		if e, ok := s.byDomain[h]; ok {
			return &Match{Entry: e, Domain: h}
		}
		idx := strings.IndexByte(h, '.')
		if idx < 0 {
			break
		}
		h = h[idx+1:]
	}
	return nil
}

// MatchURL parses a raw URL and matches its hostname.
func (s *Snapshot) MatchURL(rawURL string) *Match {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		// Protocol-relative and bare-host references still carry signal.
		if h := bareHost(rawURL); h != "" {
			return s.MatchHost(h)
		}
		return nil
	}
	return s.MatchHost(u.Hostname())
}

// MatchText scans free text (inline script bodies, rendered HTML) for
// registered domains first, then keywords. A domain hit beats any keyword
// hit; among domain hits the longest registered domain wins.
func (s *Snapshot) MatchText(text string) *Match {
	lower := strings.ToLower(text)

	var best *Match
	for i := range s.entries {
		e := &s.entries[i]
		for _, d := range e.Domains {
			if strings.Contains(lower, d) {
				if best == nil || len(d) > len(best.Domain) {
					best = &Match{Entry: e, Domain: d}
				}
			}
		}
	}
	if best != nil {
		return best
	}

	for i := range s.entries {
		e := &s.entries[i]
		for _, k := range e.Keywords {
			if strings.Contains(lower, strings.ToLower(k)) {
				return &Match{Entry: e, Keyword: k}
			}
		}
	}
	return nil
}

// bareHost salvages a hostname from strings like "//app.example.com/x".
func bareHost(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "//")
	if raw == "" {
		return ""
	}
	if idx := strings.IndexAny(raw, "/?#"); idx >= 0 {
		raw = raw[:idx]
	}
	if !strings.Contains(raw, ".") || strings.ContainsAny(raw, " <>\"'") {
		return ""
	}
	return raw
}

// Store holds the current Snapshot and supports atomic hot reload.
// Readers always see a complete snapshot; swaps never block matching.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a Store seeded with the given snapshot.
func NewStore(s *Snapshot) *Store {
	st := &Store{}
	st.current.Store(s)
	return st
}

// Snapshot returns the current snapshot.
func (st *Store) Snapshot() *Snapshot {
	return st.current.Load()
}

// Swap installs a new snapshot. In-flight detections keep the snapshot they
// captured at batch start.
func (st *Store) Swap(s *Snapshot) {
	st.current.Store(s)
}
