package domain

import "strings"

// Status represents the lifecycle state of a listing.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusSold   Status = "SOLD"
)

// String returns the string representation of Status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusSold
}

// ParseStatus maps a raw marketplace status to a Status.
// "SOLGT" is the marketplace's own label for sold listings.
// Anything unrecognised is treated as active.
func ParseStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SOLGT", "SOLD":
		return StatusSold
	default:
		return StatusActive
	}
}
