// Package depreciation calibrates an age-bucketed price curve from comparable
// listings and projects a hypothetical listing's value forward.
package depreciation

import (
	"math"
	"sort"

	"car-market-lab/internal/domain"
)

const (
	// Horizon is the number of projected years after year 0.
	Horizon = 10

	// FallbackRate is the yearly depreciation applied when the curve has no usable data.
	FallbackRate = 0.15

	// DefaultDistancePerYear is used when the caller supplies no positive distance.
	DefaultDistancePerYear = 15_000
)

// RequiredFields are the fields a comparable listing needs.
var RequiredFields = []domain.Field{
	domain.FieldPrice,
	domain.FieldMileage,
	domain.FieldModelYear,
}

// CurvePoint is one age bucket of the calibration curve.
type CurvePoint struct {
	Age            int     `json:"age"`
	AveragePrice   float64 `json:"average_price"`
	AverageMileage float64 `json:"average_mileage"`
	Count          int     `json:"count"`
}

// Curve is the sparse age→average-price curve, ordered by age ascending.
type Curve []CurvePoint

// Lookup returns the bucket for age.
func (c Curve) Lookup(age int) (CurvePoint, bool) {
	i := sort.Search(len(c), func(i int) bool { return c[i].Age >= age })
	if i < len(c) && c[i].Age == age {
		return c[i], true
	}
	return CurvePoint{}, false
}

// Points returns the curve as (age, average price) pairs.
func (c Curve) Points() []domain.Point {
	out := make([]domain.Point, len(c))
	for i, p := range c {
		out[i] = domain.Point{X: float64(p.Age), Y: p.AveragePrice}
	}
	return out
}

// Calibrate groups the listings matching model and fuelType by integer age
// and averages price and mileage per age. Listings without a price, mileage
// or model year are skipped. No comparables yields an empty curve.
func Calibrate(records []*domain.Listing, model, fuelType string, currentYear int) Curve {
	type acc struct {
		price, mileage float64
		n              int
	}
	buckets := make(map[int]*acc)

	for _, l := range records {
		if l == nil || l.Model != model || l.FuelType != fuelType || !l.HasAll(RequiredFields...) {
			continue
		}
		age, _ := l.Age(currentYear)
		b, ok := buckets[age]
		if !ok {
			b = &acc{}
			buckets[age] = b
		}
		b.price += float64(*l.Price)
		b.mileage += float64(*l.Mileage)
		b.n++
	}

	curve := make(Curve, 0, len(buckets))
	for age, b := range buckets {
		curve = append(curve, CurvePoint{
			Age:            age,
			AveragePrice:   b.price / float64(b.n),
			AverageMileage: b.mileage / float64(b.n),
			Count:          b.n,
		})
	}
	sort.Slice(curve, func(i, j int) bool { return curve[i].Age < curve[j].Age })
	return curve
}

// Input describes the hypothetical listing to project.
type Input struct {
	Age             int     `json:"age"`
	Price           float64 `json:"price"`
	Mileage         float64 `json:"mileage"`
	DistancePerYear float64 `json:"distance_per_year"`
}

// Step is one projected year.
type Step struct {
	YearOffset int     `json:"year_offset"`
	Price      float64 `json:"price"`
	Mileage    float64 `json:"mileage"`
	Rate       float64 `json:"rate"`     // depreciation applied to reach the next year
	Fallback   bool    `json:"fallback"` // Rate is FallbackRate
}

// Project walks Horizon years forward from in. Each year's rate comes from
// curve[age+1]/curve[age] when both buckets exist with positive prices,
// otherwise FallbackRate. Prices never go below zero.
// Returns nil when in.Price is not positive.
func Project(curve Curve, in Input) []Step {
	if !(in.Price > 0) || math.IsInf(in.Price, 0) {
		return nil
	}
	distance := in.DistancePerYear
	if !(distance > 0) || math.IsInf(distance, 0) {
		distance = DefaultDistancePerYear
	}
	mileage := in.Mileage
	if !(mileage >= 0) || math.IsInf(mileage, 0) {
		mileage = 0
	}

	price := in.Price
	steps := make([]Step, 0, Horizon+1)
	for year := 0; year <= Horizon; year++ {
		rate, fallback := yearRate(curve, in.Age+year)
		steps = append(steps, Step{
			YearOffset: year,
			Price:      math.Max(0, price),
			Mileage:    mileage,
			Rate:       rate,
			Fallback:   fallback,
		})
		price = math.Max(0, price*(1-rate))
		mileage += distance
	}
	return steps
}

// yearRate returns the depreciation from age to age+1.
func yearRate(curve Curve, age int) (float64, bool) {
	next, ok := curve.Lookup(age + 1)
	if !ok || next.AveragePrice <= 0 {
		return FallbackRate, true
	}
	prev, ok := curve.Lookup(age)
	if !ok || prev.AveragePrice <= 0 {
		return FallbackRate, true
	}
	return 1 - next.AveragePrice/prev.AveragePrice, false
}
