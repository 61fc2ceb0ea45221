package ingestion

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"car-market-lab/internal/domain"
	"car-market-lab/internal/idhash"
)

// Display-locale keys used by the marketplace for listing fields.
const (
	KeyPrice           = "Pris eksl. omreg."
	KeyMileage         = "Kilometerstand"
	KeyModelYear       = "Modellår"
	KeyMake            = "Merke"
	KeyModel           = "Modell"
	KeyFuelType        = "Drivstoff"
	KeyDrivetrain      = "Hjuldrift"
	KeyTransmission    = "Girkasse"
	KeyBatteryCapacity = "Batterikapasitet"
	KeyPower           = "Effekt"

	MetaServiceHistory = "service_historie"
	MetaCondition      = "Bilens_tilstand"
	MetaSellerType     = "Selger"

	MetricPricePer10k = "price_per_10k"
)

// rawListing is the loosely-typed wire form of one listing record.
type rawListing struct {
	URL         string         `json:"url"`
	Status      string         `json:"status"`
	SoldDate    string         `json:"sold_date"`
	LastChecked string         `json:"last_checked"`
	Data        map[string]any `json:"data"`
	Metadata    map[string]any `json:"metadata"`
	Metrics     map[string]any `json:"metrics"`
}

// maxInt64 bounds parsed digit strings.
var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// parseDigits strips every non-digit character and parses the remainder as an integer.
// "193 695 kr" -> 193695, "50 259 km" -> 50259.
// Digits inside unit suffixes are concatenated too; that limitation is kept.
// JSON numbers are taken directly (truncated toward zero).
func parseDigits(v any) (int64, bool) {
	switch val := v.(type) {
	case string:
		var sb strings.Builder
		for _, r := range val {
			if r >= '0' && r <= '9' {
				sb.WriteRune(r)
			}
		}
		if sb.Len() == 0 {
			return 0, false
		}
		d, err := decimal.NewFromString(sb.String())
		if err != nil || d.GreaterThan(maxInt64) {
			return 0, false
		}
		return d.IntPart(), true
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, true
		}
		f, err := val.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) || math.Abs(val) > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	default:
		return 0, false
	}
}

// parseFloat reads a finite-or-infinite float metric value.
func parseFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return val, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	default:
		return 0, false
	}
}

// text reads a trimmed string value; numbers are rendered as-is.
func text(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// optionalText returns nil when the value is absent or blank.
func optionalText(m map[string]any, key string) *string {
	if m == nil {
		return nil
	}
	s := text(m[key])
	if s == "" {
		return nil
	}
	return &s
}

// dateLayouts are the accepted sold/last-checked timestamp formats.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// pricePer10k finds the precomputed metric either directly under metrics
// or nested one level deeper (metrics.metrics.price_per_10k).
func pricePer10k(m map[string]any) *float64 {
	if m == nil {
		return nil
	}
	if v, ok := m[MetricPricePer10k]; ok && v != nil {
		if f, ok := parseFloat(v); ok {
			return &f
		}
	}
	if nested, ok := m["metrics"].(map[string]any); ok {
		return pricePer10k(nested)
	}
	return nil
}

// normalize converts a raw record to a domain.Listing.
// Returns nil when the record has no URL.
func normalize(r *rawListing) *domain.Listing {
	url := strings.TrimSpace(r.URL)
	if url == "" {
		return nil
	}

	l := &domain.Listing{
		ID:     idhash.ComputeListingID(url),
		URL:    url,
		Status: domain.ParseStatus(r.Status),

		Make:            text(r.Data[KeyMake]),
		Model:           text(r.Data[KeyModel]),
		FuelType:        text(r.Data[KeyFuelType]),
		Drivetrain:      text(r.Data[KeyDrivetrain]),
		Transmission:    text(r.Data[KeyTransmission]),
		BatteryCapacity: text(r.Data[KeyBatteryCapacity]),

		ServiceHistory: optionalText(r.Metadata, MetaServiceHistory),
		Condition:      optionalText(r.Metadata, MetaCondition),
		SellerType:     optionalText(r.Metadata, MetaSellerType),

		SoldDate:        parseDate(r.SoldDate),
		LastCheckedDate: parseDate(r.LastChecked),
		PricePer10k:     pricePer10k(r.Metrics),
	}

	if n, ok := parseDigits(r.Data[KeyPrice]); ok {
		l.Price = &n
	}
	if n, ok := parseDigits(r.Data[KeyMileage]); ok {
		l.Mileage = &n
	}
	if n, ok := parseDigits(r.Data[KeyPower]); ok {
		l.Power = &n
	}
	if n, ok := parseDigits(r.Data[KeyModelYear]); ok && n <= math.MaxInt32 {
		year := int(n)
		l.ModelYear = &year
	}

	return l
}
