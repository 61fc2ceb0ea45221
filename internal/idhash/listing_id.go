package idhash

import (
	"crypto/sha256"
	"strings"

	"github.com/mr-tron/base58"
)

// listingIDBytes is the number of hash bytes kept before encoding.
const listingIDBytes = 16

// ComputeListingID computes a deterministic listing_id from the listing URL.
// Formula: base58(SHA256(trimmed url)[:16]).
// Returns "" for an empty URL.
func ComputeListingID(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(url))
	return base58.Encode(hash[:listingIDBytes])
}

// DecodeListingID reports whether id is a well-formed listing_id.
func DecodeListingID(id string) ([]byte, bool) {
	raw, err := base58.Decode(id)
	if err != nil || len(raw) != listingIDBytes {
		return nil, false
	}
	return raw, true
}
