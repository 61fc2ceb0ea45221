package domain

import (
	"fmt"
	"math"
)

// Field names a listing field that a computation may require.
type Field int

const (
	FieldPrice       Field = iota // price > 0
	FieldMileage                  // mileage >= 0
	FieldModelYear                // model year > 0
	FieldMakeModel                // make and model non-empty
	FieldPower                    // power >= 0
	FieldPricePer10k              // precomputed metric present and finite
	FieldSoldTimes                // sold date and last checked date present
)

// String returns the field name used in logs and metrics labels.
func (f Field) String() string {
	switch f {
	case FieldPrice:
		return "price"
	case FieldMileage:
		return "mileage"
	case FieldModelYear:
		return "model_year"
	case FieldMakeModel:
		return "make_model"
	case FieldPower:
		return "power"
	case FieldPricePer10k:
		return "price_per_10k"
	case FieldSoldTimes:
		return "sold_times"
	default:
		return "unknown"
	}
}

// MarshalText encodes the field by name.
func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a field name.
func (f *Field) UnmarshalText(text []byte) error {
	for _, candidate := range AllFields {
		if candidate.String() == string(text) {
			*f = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown field %q", text)
}

// AllFields lists every Field.
var AllFields = []Field{
	FieldPrice, FieldMileage, FieldModelYear, FieldMakeModel,
	FieldPower, FieldPricePer10k, FieldSoldTimes,
}

// Has reports whether the listing carries a usable value for field.
func (l *Listing) Has(field Field) bool {
	switch field {
	case FieldPrice:
		return l.Price != nil && *l.Price > 0
	case FieldMileage:
		return l.Mileage != nil && *l.Mileage >= 0
	case FieldModelYear:
		return l.ModelYear != nil && *l.ModelYear > 0
	case FieldMakeModel:
		return l.Make != "" && l.Model != ""
	case FieldPower:
		return l.Power != nil && *l.Power >= 0
	case FieldPricePer10k:
		return l.PricePer10k != nil && !math.IsNaN(*l.PricePer10k) && !math.IsInf(*l.PricePer10k, 0)
	case FieldSoldTimes:
		return l.SoldDate != nil && l.LastCheckedDate != nil
	default:
		return false
	}
}

// HasAll reports whether the listing is valid for every field.
func (l *Listing) HasAll(fields ...Field) bool {
	for _, f := range fields {
		if !l.Has(f) {
			return false
		}
	}
	return true
}

// SelectValid returns the listings valid for all fields, preserving order.
func SelectValid(listings []*Listing, fields ...Field) []*Listing {
	out := make([]*Listing, 0, len(listings))
	for _, l := range listings {
		if l != nil && l.HasAll(fields...) {
			out = append(out, l)
		}
	}
	return out
}
