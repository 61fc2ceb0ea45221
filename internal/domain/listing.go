package domain

import (
	"strconv"
	"strings"
	"time"
)

// Listing represents one observed vehicle advertisement after normalization.
// Corresponds to the listings table in PostgreSQL.
type Listing struct {
	ID     string // deterministic hash of URL
	URL    string // unique per listing
	Status Status // ACTIVE | SOLD

	// Core numeric fields (nil when missing or unparseable)
	Price     *int64 // local currency
	Mileage   *int64 // distance units
	ModelYear *int
	Power     *int64

	// Categorical fields ("" = unknown)
	Make            string
	Model           string
	FuelType        string
	Drivetrain      string
	Transmission    string
	BatteryCapacity string

	// Metadata (nil = absent on the source record)
	ServiceHistory *string
	Condition      *string
	SellerType     *string

	// Temporal fields (sold listings only)
	SoldDate        *time.Time
	LastCheckedDate *time.Time

	// PricePer10k is the precomputed price per 10,000 distance units, consumed as-is.
	PricePer10k *float64
}

// Age returns currentYear - ModelYear. ok is false when ModelYear is missing.
func (l *Listing) Age(currentYear int) (age int, ok bool) {
	if l.ModelYear == nil {
		return 0, false
	}
	return currentYear - *l.ModelYear, true
}

// Title returns the human-readable "<year> <make> <model>" label.
func (l *Listing) Title() string {
	parts := make([]string, 0, 3)
	if l.ModelYear != nil {
		parts = append(parts, strconv.Itoa(*l.ModelYear))
	}
	if l.Make != "" {
		parts = append(parts, l.Make)
	}
	if l.Model != "" {
		parts = append(parts, l.Model)
	}
	return strings.Join(parts, " ")
}

// Ref returns the navigation reference for this listing.
func (l *Listing) Ref() ListingRef {
	ref := ListingRef{ID: l.ID, URL: l.URL, Title: l.Title()}
	if l.Price != nil {
		ref.Price = *l.Price
	}
	return ref
}

// ListingRef is the minimal listing identity attached to derived series
// so the presentation layer can open the listing.
type ListingRef struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
	Price int64  `json:"price"`
}
