// Package metrics summarizes filtered listing subsets and ranks the
// summaries of the primary and comparison sets against each other.
package metrics

import (
	"math"

	"car-market-lab/internal/domain"
)

// AssumedYearlyDepreciation is the fixed annual rate used to estimate a
// listing's initial price from its current price.
const AssumedYearlyDepreciation = 0.15

const hoursPerDay = 24

// Summarize computes aggregate metrics over an already-filtered subset.
// Each metric is nil when no listing in the subset qualifies for it.
func Summarize(records []*domain.Listing, currentYear int) domain.Metrics {
	var (
		prices        []float64
		perDistance   []float64
		depreciations []float64
		daysOnMarket  []float64
	)

	n := 0
	for _, l := range records {
		if l == nil {
			continue
		}
		n++

		if l.Has(domain.FieldPrice) {
			prices = append(prices, float64(*l.Price))
		}
		if v, ok := pricePerDistance(l, currentYear); ok {
			perDistance = append(perDistance, v)
		}
		if v, ok := yearlyDepreciation(l, currentYear); ok {
			depreciations = append(depreciations, v)
		}
		if v, ok := timeOnMarket(l); ok {
			daysOnMarket = append(daysOnMarket, v)
		}
	}

	return domain.Metrics{
		AveragePrice:              computeMean(prices),
		AveragePricePerDistance:   computeMean(perDistance),
		AverageYearlyDepreciation: computeMean(depreciations),
		AverageTimeOnMarket:       computeMean(daysOnMarket),
		SampleSize:                n,
	}
}

// pricePerDistance is the straight-line yearly depreciation per 1000
// distance units driven per year.
func pricePerDistance(l *domain.Listing, currentYear int) (float64, bool) {
	if !l.HasAll(domain.FieldPrice, domain.FieldMileage, domain.FieldModelYear) {
		return 0, false
	}
	age, _ := l.Age(currentYear)
	if age <= 0 {
		return 0, false
	}
	yearly := float64(*l.Price) / float64(age)
	distancePerYear := float64(*l.Mileage) / float64(age)
	ratio := yearly / (distancePerYear / 1000)
	return ratio, isFinite(ratio)
}

// yearlyDepreciation estimates the initial price by compounding the assumed
// rate backwards over the listing's age, then spreads the loss over that age.
func yearlyDepreciation(l *domain.Listing, currentYear int) (float64, bool) {
	if !l.HasAll(domain.FieldPrice, domain.FieldModelYear) {
		return 0, false
	}
	age, _ := l.Age(currentYear)
	if age <= 0 {
		return 0, false
	}
	price := float64(*l.Price)
	initial := price * math.Pow(1+AssumedYearlyDepreciation, float64(age))
	v := (initial - price) / float64(age)
	return v, isFinite(v)
}

// timeOnMarket returns whole days between last check and sale for sold listings.
func timeOnMarket(l *domain.Listing) (float64, bool) {
	if l.Status != domain.StatusSold || !l.Has(domain.FieldSoldTimes) {
		return 0, false
	}
	days := math.Floor(l.SoldDate.Sub(*l.LastCheckedDate).Hours() / hoursPerDay)
	if days < 0 {
		return 0, false
	}
	return days, true
}

// computeMean returns nil for an empty slice.
func computeMean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	return &mean
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
