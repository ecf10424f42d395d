package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// fileFormat is the on-disk registry layout.
type fileFormat struct {
	Version string           `json:"version"`
	Engines []SignatureEntry `json:"engines"`
}

// LoadFile reads a signature table from a JSON file. Entries from the file
// are appended after the built-in table, so file entries override built-in
// domain mappings on collision.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a snapshot from raw JSON, layered over the built-in table.
func Parse(data []byte) (*Snapshot, error) {
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("registry: parse: %w", err)
	}
	if f.Version == "" {
		return nil, fmt.Errorf("registry: file missing version")
	}
	for i, e := range f.Engines {
		if e.Name == "" || len(e.Domains) == 0 {
			return nil, fmt.Errorf("registry: entry %d missing name or domains", i)
		}
		for _, d := range e.Domains {
			if strings.ContainsAny(d, " /:") {
				return nil, fmt.Errorf("registry: entry %q: %q is not a bare domain", e.Name, d)
			}
		}
	}

	entries := make([]SignatureEntry, 0, len(builtinEntries)+len(f.Engines))
	entries = append(entries, builtinEntries...)
	entries = append(entries, f.Engines...)
	return NewSnapshot(f.Version, entries), nil
}
