// Package filter evaluates filter sets against normalized listings.
//
// A filter set is a strict conjunction of categorical constraints, metadata
// constraints, the sold-only flag and two inclusive numeric ranges. Filtering
// never fails: a set that matches nothing yields an empty subset. Only listings
// carrying all RequiredFields take part.
package filter

import (
	"strconv"

	"car-market-lab/internal/domain"
)

// RequiredFields are the fields a listing needs to take part in filtered views.
var RequiredFields = []domain.Field{
	domain.FieldPrice,
	domain.FieldMileage,
	domain.FieldModelYear,
	domain.FieldMakeModel,
}

// UnknownLabel is the marketplace's own label for an unknown metadata value.
// Exactly(UnknownLabel) on a metadata field behaves like Unknown.
const UnknownLabel = "UKJENT"

// Apply returns the valid records matching fs, preserving input order.
// Ranges are clamped to the bounds of records.
func Apply(records []*domain.Listing, fs domain.FilterSet) []*domain.Listing {
	return ApplyWithin(records, fs, ComputeBounds(records))
}

// ApplyWithin is Apply with explicit data bounds, typically those of the whole collection.
// Records missing any of RequiredFields never match.
func ApplyWithin(records []*domain.Listing, fs domain.FilterSet, bounds Bounds) []*domain.Listing {
	mileage := activeRange(fs.MileageRange, bounds.Mileage)
	price := activeRange(fs.PriceRange, bounds.Price)

	out := make([]*domain.Listing, 0, len(records))
	for _, l := range records {
		if l == nil || !l.HasAll(RequiredFields...) {
			continue
		}
		if Matches(l, fs) && inRange(l.Mileage, mileage) && inRange(l.Price, price) {
			out = append(out, l)
		}
	}
	return out
}

// Matches evaluates the categorical, metadata and sold-only predicates of fs.
// Range predicates need data bounds and are applied by ApplyWithin.
func Matches(l *domain.Listing, fs domain.FilterSet) bool {
	return matchText(fs.Model, l.Model) &&
		matchYear(fs.ModelYear, l.ModelYear) &&
		matchText(fs.FuelType, l.FuelType) &&
		matchText(fs.Drivetrain, l.Drivetrain) &&
		matchText(fs.Transmission, l.Transmission) &&
		matchText(fs.BatteryCapacity, l.BatteryCapacity) &&
		matchMeta(fs.ServiceHistory, l.ServiceHistory) &&
		matchMeta(fs.Condition, l.Condition) &&
		matchMeta(fs.SellerType, l.SellerType) &&
		(!fs.ShowOnlySold || l.Status == domain.StatusSold)
}

func matchText(c domain.Constraint, v string) bool {
	switch c.Kind {
	case domain.ConstraintExactly:
		return v == c.Value
	case domain.ConstraintUnknown:
		return v == ""
	default:
		return true
	}
}

func matchYear(c domain.Constraint, year *int) bool {
	switch c.Kind {
	case domain.ConstraintExactly:
		return year != nil && strconv.Itoa(*year) == c.Value
	case domain.ConstraintUnknown:
		return year == nil
	default:
		return true
	}
}

// matchMeta: an absent metadata value matches only the unknown category.
func matchMeta(c domain.Constraint, v *string) bool {
	if c.Kind == domain.ConstraintExactly && c.Value == UnknownLabel {
		c = domain.Unknown()
	}
	switch c.Kind {
	case domain.ConstraintExactly:
		return v != nil && *v == c.Value
	case domain.ConstraintUnknown:
		return v == nil || *v == UnknownLabel
	default:
		return true
	}
}

// activeRange returns the clamped range, or nil when the predicate is bypassed.
func activeRange(r *domain.Range, bounds domain.Range) *domain.Range {
	if r == nil {
		return nil
	}
	clamped := r.Clamp(bounds)
	if clamped == bounds {
		return nil
	}
	return &clamped
}

func inRange(v *int64, r *domain.Range) bool {
	if r == nil {
		return true
	}
	return v != nil && r.Contains(float64(*v))
}
