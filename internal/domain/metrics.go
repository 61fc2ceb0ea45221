package domain

import "time"

// Metrics holds aggregate metrics for one filtered subset.
// A nil field means no listing qualified for that metric.
type Metrics struct {
	AveragePrice              *float64 `json:"average_price"`
	AveragePricePerDistance   *float64 `json:"average_price_per_distance"`  // yearly depreciation per 1000 distance units
	AverageYearlyDepreciation *float64 `json:"average_yearly_depreciation"` // assumes 15%/year backwards
	AverageTimeOnMarket       *float64 `json:"average_time_on_market"`      // days, sold listings only
	SampleSize                int      `json:"sample_size"`
}

// MetricField names a rankable metric.
type MetricField string

const (
	MetricSampleSize                MetricField = "sample_size"
	MetricAveragePrice              MetricField = "average_price"
	MetricAveragePricePerDistance   MetricField = "average_price_per_distance"
	MetricAverageYearlyDepreciation MetricField = "average_yearly_depreciation"
	MetricAverageTimeOnMarket       MetricField = "average_time_on_market"
)

// MetricFields lists all fields in display order.
var MetricFields = []MetricField{
	MetricSampleSize,
	MetricAveragePrice,
	MetricAveragePricePerDistance,
	MetricAverageYearlyDepreciation,
	MetricAverageTimeOnMarket,
}

// LowerIsBetter reports whether smaller values of the field rank higher.
func (f MetricField) LowerIsBetter() bool {
	switch f {
	case MetricAveragePricePerDistance, MetricAverageYearlyDepreciation, MetricAverageTimeOnMarket:
		return true
	default:
		return false
	}
}

// Value returns the field's value, or nil when absent.
// SampleSize is absent when zero.
func (m *Metrics) Value(f MetricField) *float64 {
	if m == nil {
		return nil
	}
	switch f {
	case MetricSampleSize:
		if m.SampleSize == 0 {
			return nil
		}
		v := float64(m.SampleSize)
		return &v
	case MetricAveragePrice:
		return m.AveragePrice
	case MetricAveragePricePerDistance:
		return m.AveragePricePerDistance
	case MetricAverageYearlyDepreciation:
		return m.AverageYearlyDepreciation
	case MetricAverageTimeOnMarket:
		return m.AverageTimeOnMarket
	default:
		return nil
	}
}

// Flag marks a value's rank within a comparison row.
type Flag string

const (
	FlagNone  Flag = ""
	FlagBest  Flag = "best"
	FlagWorst Flag = "worst"
)

// MetricsSnapshot is a persisted Metrics row for one filter set in one report run.
// Corresponds to metrics_snapshots table in ClickHouse.
type MetricsSnapshot struct {
	RunID       string    // report run identifier (uuid)
	SetIndex    int       // 0 = primary, 1..MaxComparisons = comparisons
	Description string    // FilterSet.Describe()
	CurrentYear int       // reference year used for ages
	Metrics     Metrics   // computed metrics
	CreatedAt   time.Time // snapshot time
}
