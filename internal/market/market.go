// Package market buckets listings by model year.
package market

import (
	"sort"

	"car-market-lab/internal/domain"
)

// TopListings is how many listings of a bucket are opened together.
const TopListings = 5

// RequiredFields are the fields a listing needs to be counted.
var RequiredFields = []domain.Field{
	domain.FieldPrice,
	domain.FieldModelYear,
	domain.FieldMakeModel,
}

// Aggregate groups valid listings by model year, ascending. Each bucket keeps
// every listing reference in input order. Empty input yields an empty slice.
func Aggregate(records []*domain.Listing) []domain.YearBucket {
	byYear := make(map[int]*domain.YearBucket)
	for _, l := range records {
		if l == nil || !l.HasAll(RequiredFields...) {
			continue
		}
		year := *l.ModelYear
		b, ok := byYear[year]
		if !ok {
			b = &domain.YearBucket{Year: year}
			byYear[year] = b
		}
		b.Count++
		b.Listings = append(b.Listings, l.Ref())
	}

	out := make([]domain.YearBucket, 0, len(byYear))
	for _, b := range byYear {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Total returns the number of listings across buckets.
func Total(buckets []domain.YearBucket) int {
	n := 0
	for _, b := range buckets {
		n += b.Count
	}
	return n
}
