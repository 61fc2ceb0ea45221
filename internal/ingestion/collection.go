// Package ingestion turns raw listing documents into a normalized, immutable
// in-memory collection. Validity is decided per computation, not at load time:
// callers ask the collection for the subset valid for the fields they need.
package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"car-market-lab/internal/domain"
)

// Stats summarizes one load.
type Stats struct {
	Records    int                  // entries in the source document
	Accepted   int                  // listings kept
	Skipped    int                  // malformed entries or entries without a URL
	Duplicates int                  // repeated URLs (first occurrence wins)
	Missing    map[domain.Field]int // accepted listings not valid for a field
}

// Collection is an immutable snapshot of normalized listings.
type Collection struct {
	listings []*domain.Listing
	stats    Stats
}

// NewCollection builds a collection from already-normalized listings,
// e.g. listings read back from storage.
func NewCollection(listings []*domain.Listing) *Collection {
	c := &Collection{stats: Stats{Missing: make(map[domain.Field]int)}}
	seen := make(map[string]struct{}, len(listings))
	for _, l := range listings {
		c.stats.Records++
		if l == nil || l.URL == "" {
			c.stats.Skipped++
			continue
		}
		if _, dup := seen[l.URL]; dup {
			c.stats.Duplicates++
			continue
		}
		seen[l.URL] = struct{}{}
		c.add(l)
	}
	return c
}

// Empty returns a collection with no listings.
func Empty() *Collection {
	return &Collection{stats: Stats{Missing: make(map[domain.Field]int)}}
}

func (c *Collection) add(l *domain.Listing) {
	c.listings = append(c.listings, l)
	c.stats.Accepted++
	for _, f := range domain.AllFields {
		if !l.Has(f) {
			c.stats.Missing[f]++
		}
	}
}

// Len returns the number of listings.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.listings)
}

// All returns every listing in source order.
// The returned slice is a copy; the listings themselves must not be mutated.
func (c *Collection) All() []*domain.Listing {
	if c == nil {
		return nil
	}
	out := make([]*domain.Listing, len(c.listings))
	copy(out, c.listings)
	return out
}

// Valid returns the listings valid for every requested field, in source order.
func (c *Collection) Valid(fields ...domain.Field) []*domain.Listing {
	if c == nil {
		return nil
	}
	return domain.SelectValid(c.listings, fields...)
}

// Stats returns load statistics.
func (c *Collection) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return c.stats
}

// Parse normalizes a listings document. Accepted shapes are
// {"listings": [...]}, a bare array, or either of those double-encoded as a JSON string.
// Any other input yields an empty collection; Parse never fails.
func Parse(data []byte) *Collection {
	items := topLevelItems(sanitizeNonFinite(data), true)

	c := Empty()
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		c.stats.Records++

		var r rawListing
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		if err := dec.Decode(&r); err != nil {
			c.stats.Skipped++
			continue
		}

		l := normalize(&r)
		if l == nil {
			c.stats.Skipped++
			continue
		}
		if _, dup := seen[l.URL]; dup {
			c.stats.Duplicates++
			continue
		}
		seen[l.URL] = struct{}{}
		c.add(l)
	}
	return c
}

// topLevelItems extracts the raw listing entries from a document.
func topLevelItems(data []byte, allowString bool) []json.RawMessage {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		return items
	case '{':
		var doc struct {
			Listings []json.RawMessage `json:"listings"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil
		}
		return doc.Listings
	case '"':
		if !allowString {
			return nil
		}
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil
		}
		return topLevelItems(sanitizeNonFinite([]byte(inner)), false)
	default:
		return nil
	}
}

// Load reads and parses a listings document.
// Read errors are returned; malformed content is not an error.
func Load(r io.Reader) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read listings: %w", err)
	}
	return Parse(data), nil
}

// LoadFile reads and parses a listings document from disk.
func LoadFile(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open listings file: %w", err)
	}
	defer f.Close()
	return Load(f)
}
