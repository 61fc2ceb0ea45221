package analytics

import (
	"errors"
	"fmt"
	"time"

	"car-market-lab/internal/depreciation"
	"car-market-lab/internal/scoring"
)

// ValueMetric selects the Y axis of the value-by-year series.
type ValueMetric string

const (
	// ValuePricePer10k uses the precomputed price per 10,000 distance units as-is.
	ValuePricePer10k ValueMetric = "price_per_10k"
	// ValueScore uses 1e9 / (price × mileage); higher is better.
	ValueScore ValueMetric = "value_score"
)

// ErrInvalidValueMetric is returned for an unrecognized ValueMetric.
var ErrInvalidValueMetric = errors.New("invalid value metric")

// ParseValueMetric validates a metric name. Empty selects ValuePricePer10k.
func ParseValueMetric(s string) (ValueMetric, error) {
	switch ValueMetric(s) {
	case "", ValuePricePer10k:
		return ValuePricePer10k, nil
	case ValueScore:
		return ValueScore, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidValueMetric, s)
	}
}

// ProjectionRequest describes the hypothetical listing to project.
// Empty Model or FuelType fall back to the primary set's exact constraint.
type ProjectionRequest struct {
	Model    string `json:"model"`
	FuelType string `json:"fuel_type"`
	depreciation.Input
}

// Options are the non-filter inputs of a recomputation.
// DistancePerYear applies to projections that do not set their own.
type Options struct {
	CurrentYear     int                `json:"current_year"`
	Weights         scoring.Weights    `json:"weights"`
	ValueMetric     ValueMetric        `json:"value_metric"`
	DistancePerYear float64            `json:"distance_per_year,omitempty"`
	Projection      *ProjectionRequest `json:"projection,omitempty"`
}

// DefaultOptions returns options for the current calendar year with default weights.
func DefaultOptions() Options {
	return Options{
		CurrentYear:     time.Now().Year(),
		Weights:         scoring.DefaultWeights(),
		ValueMetric:     ValuePricePer10k,
		DistancePerYear: depreciation.DefaultDistancePerYear,
	}
}

// normalize fills defaults, clamps weights and validates the value metric.
func (o Options) normalize() (Options, error) {
	if o.CurrentYear <= 0 {
		o.CurrentYear = time.Now().Year()
	}
	o.Weights = o.Weights.Clamp()
	metric, err := ParseValueMetric(string(o.ValueMetric))
	if err != nil {
		return o, err
	}
	o.ValueMetric = metric
	return o, nil
}
