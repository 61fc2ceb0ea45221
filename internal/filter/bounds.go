package filter

import (
	"sort"
	"strconv"

	"car-market-lab/internal/domain"
)

// Default bounds when no listing carries a usable value.
var (
	DefaultMileageBounds = domain.Range{Min: 0, Max: 1_000_000}
	DefaultPriceBounds   = domain.Range{Min: 0, Max: 10_000_000}
)

// Bounds are the data-derived extents of the range predicates.
type Bounds struct {
	Mileage domain.Range `json:"mileage"`
	Price   domain.Range `json:"price"`
}

// DefaultBounds returns the bounds used for an empty collection.
func DefaultBounds() Bounds {
	return Bounds{Mileage: DefaultMileageBounds, Price: DefaultPriceBounds}
}

// ComputeBounds returns min/max over non-negative mileage and positive price values.
// Each dimension falls back to its default independently.
func ComputeBounds(records []*domain.Listing) Bounds {
	return Bounds{
		Mileage: extent(records, func(l *domain.Listing) *int64 { return l.Mileage }, 0, DefaultMileageBounds),
		Price:   extent(records, func(l *domain.Listing) *int64 { return l.Price }, 1, DefaultPriceBounds),
	}
}

// extent ignores values below floor.
func extent(records []*domain.Listing, get func(*domain.Listing) *int64, floor int64, def domain.Range) domain.Range {
	var out domain.Range
	found := false
	for _, l := range records {
		if l == nil {
			continue
		}
		v := get(l)
		if v == nil || *v < floor {
			continue
		}
		f := float64(*v)
		if !found {
			out = domain.Range{Min: f, Max: f}
			found = true
			continue
		}
		if f < out.Min {
			out.Min = f
		}
		if f > out.Max {
			out.Max = f
		}
	}
	if !found {
		return def
	}
	return out
}

// Default option lists for metadata fields absent from the data.
var (
	DefaultServiceHistories = []string{"BRA", "MIDDELS", "DÅRLIG", UnknownLabel}
	DefaultConditions       = []string{"INGENTING Å BEMERKE", "NOE Å BEMERKE", "MYE Å BEMERKE"}
	DefaultSellerTypes      = []string{"PRIVAT", "BILFORHANDLER"}
)

// Options are the selectable values per categorical field.
type Options struct {
	Models            []string `json:"models"`
	ModelYears        []string `json:"model_years"`
	FuelTypes         []string `json:"fuel_types"`
	Drivetrains       []string `json:"drivetrains"`
	Transmissions     []string `json:"transmissions"`
	BatteryCapacities []string `json:"battery_capacities"`
	ServiceHistories  []string `json:"service_histories"`
	Conditions        []string `json:"conditions"`
	SellerTypes       []string `json:"seller_types"`
}

// ComputeOptions collects sorted unique non-empty values per field.
// Model years sort numerically; metadata fields fall back to the default lists.
func ComputeOptions(records []*domain.Listing) Options {
	sets := make([]map[string]struct{}, 9)
	for i := range sets {
		sets[i] = make(map[string]struct{})
	}
	add := func(i int, v string) {
		if v != "" {
			sets[i][v] = struct{}{}
		}
	}
	addPtr := func(i int, v *string) {
		if v != nil {
			add(i, *v)
		}
	}

	for _, l := range records {
		if l == nil {
			continue
		}
		add(0, l.Model)
		if l.ModelYear != nil {
			add(1, strconv.Itoa(*l.ModelYear))
		}
		add(2, l.FuelType)
		add(3, l.Drivetrain)
		add(4, l.Transmission)
		add(5, l.BatteryCapacity)
		addPtr(6, l.ServiceHistory)
		addPtr(7, l.Condition)
		addPtr(8, l.SellerType)
	}

	years := keys(sets[1])
	sort.Slice(years, func(i, j int) bool {
		a, _ := strconv.Atoi(years[i])
		b, _ := strconv.Atoi(years[j])
		return a < b
	})

	return Options{
		Models:            sortedKeys(sets[0]),
		ModelYears:        years,
		FuelTypes:         sortedKeys(sets[2]),
		Drivetrains:       sortedKeys(sets[3]),
		Transmissions:     sortedKeys(sets[4]),
		BatteryCapacities: sortedKeys(sets[5]),
		ServiceHistories:  orDefault(sortedKeys(sets[6]), DefaultServiceHistories),
		Conditions:        orDefault(sortedKeys(sets[7]), DefaultConditions),
		SellerTypes:       orDefault(sortedKeys(sets[8]), DefaultSellerTypes),
	}
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := keys(set)
	sort.Strings(out)
	return out
}

func orDefault(values, def []string) []string {
	if len(values) > 0 {
		return values
	}
	out := make([]string, len(def))
	copy(out, def)
	return out
}
