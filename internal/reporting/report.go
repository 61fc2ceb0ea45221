package reporting

import (
	"time"

	"car-market-lab/internal/depreciation"
	"car-market-lab/internal/domain"
)

// Report is one rendered analysis of a filter state.
type Report struct {
	// Metadata
	RunID       string
	GeneratedAt time.Time
	CurrentYear int

	// Data Summary
	DataSummary DataSummary

	// Filter sets, index 0 is the primary
	FilterSets []FilterSetRow

	// Cross-set comparison, one row per metric field
	Comparison []ComparisonRow

	// Primary set market by model year, ascending
	Market []MarketRow

	// Depreciation projection, nil when not requested
	Projection *ProjectionSection

	// Earlier snapshots of the same filter descriptions
	History []HistoryRow
}

// DataSummary describes the loaded collection.
type DataSummary struct {
	Records    int
	Accepted   int
	Skipped    int
	Duplicates int
	Missing    []MissingFieldRow // sorted by field
}

// MissingFieldRow counts accepted listings without a usable value for a field.
type MissingFieldRow struct {
	Field string
	Count int
}

// FilterSetRow describes one filter set.
type FilterSetRow struct {
	Index       int
	Label       string // "Primary", "Comparison 1", ...
	Description string
	Count       int
	Metrics     domain.Metrics
}

// ComparisonRow is one metric across every filter set.
type ComparisonRow struct {
	Field  domain.MetricField
	Label  string
	Values []*float64 // by set index
	Flags  []domain.Flag
}

// MarketRow is one model-year bucket.
type MarketRow struct {
	Year  int
	Count int
	Top   []domain.ListingRef
}

// ProjectionSection is the forecast of a hypothetical listing.
type ProjectionSection struct {
	Model    string
	FuelType string
	Steps    []depreciation.Step
}

// HistoryRow is a stored snapshot from an earlier run.
type HistoryRow struct {
	RunID       string
	CreatedAt   time.Time
	Description string
	SampleSize  int
	Metrics     domain.Metrics
}
