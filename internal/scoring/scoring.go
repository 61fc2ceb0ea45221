// Package scoring computes the weighted multi-factor desirability score.
package scoring

import (
	"math"

	"car-market-lab/internal/domain"
)

// Weight limits exposed to the presentation layer.
const (
	MinWeight  = 0.0
	MaxWeight  = 2.0
	WeightStep = 0.1
)

// Normalization constants of the score terms.
const (
	mileageCeiling   = 500_000.0
	powerReference   = 300.0
	distancePerPrice = 10_000.0
	ageScale         = 10.0
	ageExponent      = 1.5
)

// RequiredFields are the fields a listing needs to be scored.
// Listings without power are excluded, never scored as zero.
var RequiredFields = []domain.Field{
	domain.FieldPrice,
	domain.FieldMileage,
	domain.FieldModelYear,
	domain.FieldPower,
}

// Weights scale each score term independently.
type Weights struct {
	PriceEfficiency float64 `json:"price_efficiency"`
	Age             float64 `json:"age"`
	Mileage         float64 `json:"mileage"`
	Power           float64 `json:"power"`
}

// DefaultWeights weighs every term at 1.0.
func DefaultWeights() Weights {
	return Weights{PriceEfficiency: 1, Age: 1, Mileage: 1, Power: 1}
}

// Clamp restricts each weight to [MinWeight, MaxWeight] and snaps it to WeightStep.
// Non-finite weights become the default.
func (w Weights) Clamp() Weights {
	return Weights{
		PriceEfficiency: clampWeight(w.PriceEfficiency),
		Age:             clampWeight(w.Age),
		Mileage:         clampWeight(w.Mileage),
		Power:           clampWeight(w.Power),
	}
}

func clampWeight(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	v = math.Max(MinWeight, math.Min(MaxWeight, v))
	return math.Round(v/WeightStep) * WeightStep
}

// Breakdown holds the weighted value of every term.
type Breakdown struct {
	PriceEfficiency float64 `json:"price_efficiency"`
	Age             float64 `json:"age"`
	Mileage         float64 `json:"mileage"`
	Power           float64 `json:"power"`
}

// Total sums the terms.
func (b Breakdown) Total() float64 {
	return b.PriceEfficiency + b.Age + b.Mileage + b.Power
}

// Terms computes the weighted score terms for l.
// ok is false when l lacks a required field or a term is not finite.
// Ages below 1 (current-year or future models) count as 1.
func Terms(l *domain.Listing, w Weights, currentYear int) (Breakdown, bool) {
	if l == nil || !l.HasAll(RequiredFields...) {
		return Breakdown{}, false
	}
	age, _ := l.Age(currentYear)
	if age < 1 {
		age = 1
	}

	price := float64(*l.Price)
	mileage := float64(*l.Mileage)
	power := float64(*l.Power)

	b := Breakdown{
		PriceEfficiency: w.PriceEfficiency * (mileage / distancePerPrice) / price,
		Age:             w.Age * ageScale / math.Pow(float64(age), ageExponent),
		Mileage:         w.Mileage * (1 - mileage/mileageCeiling),
		Power:           w.Power * (power / powerReference),
	}
	if !finite(b.Total()) {
		return Breakdown{}, false
	}
	return b, true
}

// Score returns the total weighted score for l.
func Score(l *domain.Listing, w Weights, currentYear int) (float64, bool) {
	b, ok := Terms(l, w, currentYear)
	if !ok {
		return 0, false
	}
	return b.Total(), true
}

// Series scores every eligible listing: X is the score, Y the price.
// Ineligible listings are skipped; order follows records.
func Series(records []*domain.Listing, w Weights, currentYear int) []domain.ScoredPoint {
	out := make([]domain.ScoredPoint, 0, len(records))
	for _, l := range records {
		score, ok := Score(l, w, currentYear)
		if !ok {
			continue
		}
		age, _ := l.Age(currentYear)
		out = append(out, domain.ScoredPoint{
			Point:   domain.Point{X: score, Y: float64(*l.Price)},
			ID:      l.ID,
			URL:     l.URL,
			Title:   l.Title(),
			Mileage: l.Mileage,
			Price:   l.Price,
			Power:   l.Power,
			Age:     &age,
		})
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
