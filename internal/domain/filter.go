package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MaxComparisons is the number of comparison filter sets allowed next to the primary.
const MaxComparisons = 3

// ConstraintKind tags a Constraint.
type ConstraintKind int

const (
	// ConstraintAny places no restriction on the field.
	ConstraintAny ConstraintKind = iota
	// ConstraintExactly requires an exact value match.
	ConstraintExactly
	// ConstraintUnknown selects records where the field is absent or marked unknown.
	ConstraintUnknown
)

// Constraint is a tagged option: Any | Exactly(value) | Unknown.
// The zero value is Any.
type Constraint struct {
	Kind  ConstraintKind
	Value string // only meaningful for ConstraintExactly
}

// Any returns an unconstrained Constraint.
func Any() Constraint { return Constraint{} }

// Exactly returns a Constraint requiring value.
func Exactly(value string) Constraint {
	return Constraint{Kind: ConstraintExactly, Value: value}
}

// Unknown returns a Constraint selecting the unknown category.
func Unknown() Constraint { return Constraint{Kind: ConstraintUnknown} }

// IsAny reports whether the constraint is unconstrained.
func (c Constraint) IsAny() bool { return c.Kind == ConstraintAny }

// String returns a display form: "*" for Any, "?" for Unknown, the value otherwise.
func (c Constraint) String() string {
	switch c.Kind {
	case ConstraintExactly:
		return c.Value
	case ConstraintUnknown:
		return "?"
	default:
		return "*"
	}
}

// constraintJSON is the object wire form of a Constraint.
type constraintJSON struct {
	Exactly *string `json:"exactly,omitempty"`
	Unknown bool    `json:"unknown,omitempty"`
}

// MarshalJSON encodes Any as null, Unknown as {"unknown":true}
// and Exactly(v) as {"exactly":v}.
func (c Constraint) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ConstraintExactly:
		v := c.Value
		return json.Marshal(constraintJSON{Exactly: &v})
	case ConstraintUnknown:
		return json.Marshal(constraintJSON{Unknown: true})
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, the object form, or a bare string shorthand:
// "*" is Any, "?" is Unknown, anything else is Exactly.
func (c *Constraint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = Any()
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "*":
			*c = Any()
		case "?":
			*c = Unknown()
		default:
			*c = Exactly(s)
		}
		return nil
	}
	var obj constraintJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode constraint: %w", err)
	}
	switch {
	case obj.Unknown:
		*c = Unknown()
	case obj.Exactly != nil:
		*c = Exactly(*obj.Exactly)
	default:
		*c = Any()
	}
	return nil
}

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp restricts r to bounds.
func (r Range) Clamp(bounds Range) Range {
	out := r
	if out.Min < bounds.Min {
		out.Min = bounds.Min
	}
	if out.Max > bounds.Max {
		out.Max = bounds.Max
	}
	return out
}

// FilterSet is one named filter configuration: the primary selection
// or one of up to MaxComparisons comparison selections.
type FilterSet struct {
	Model           Constraint `json:"model"`
	ModelYear       Constraint `json:"model_year"`
	FuelType        Constraint `json:"fuel_type"`
	Drivetrain      Constraint `json:"drivetrain"`
	Transmission    Constraint `json:"transmission"`
	BatteryCapacity Constraint `json:"battery_capacity"`
	ServiceHistory  Constraint `json:"service_history"`
	Condition       Constraint `json:"condition"`
	SellerType      Constraint `json:"seller_type"`

	ShowOnlySold bool `json:"show_only_sold"`

	// nil means the full data-derived bounds.
	MileageRange *Range `json:"mileage_range,omitempty"`
	PriceRange   *Range `json:"price_range,omitempty"`
}

// DefaultFilterSet returns the unconstrained filter set.
func DefaultFilterSet() FilterSet {
	return FilterSet{}
}

// Describe returns a compact description of the active constraints.
func (f FilterSet) Describe() string {
	var buf bytes.Buffer
	add := func(name string, c Constraint) {
		if c.IsAny() {
			return
		}
		if buf.Len() > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s=%s", name, c)
	}
	add("model", f.Model)
	add("year", f.ModelYear)
	add("fuel", f.FuelType)
	add("drivetrain", f.Drivetrain)
	add("transmission", f.Transmission)
	add("battery", f.BatteryCapacity)
	add("service", f.ServiceHistory)
	add("condition", f.Condition)
	add("seller", f.SellerType)
	if f.ShowOnlySold {
		if buf.Len() > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString("sold only")
	}
	if f.MileageRange != nil {
		if buf.Len() > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "mileage %.0f-%.0f", f.MileageRange.Min, f.MileageRange.Max)
	}
	if f.PriceRange != nil {
		if buf.Len() > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "price %.0f-%.0f", f.PriceRange.Min, f.PriceRange.Max)
	}
	if buf.Len() == 0 {
		return "all listings"
	}
	return buf.String()
}
