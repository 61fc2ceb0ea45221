package filter

import (
	"encoding/json"
	"errors"
	"fmt"

	"car-market-lab/internal/domain"
)

var (
	// ErrTooManyComparisons is returned when adding past domain.MaxComparisons.
	ErrTooManyComparisons = fmt.Errorf("too many comparisons: at most %d allowed", domain.MaxComparisons)

	// ErrComparisonIndex is returned for an index outside the current comparison list.
	ErrComparisonIndex = errors.New("comparison index out of range")
)

// State is the current filter selection: one primary set, always present,
// plus an ordered fixed-capacity list of comparison sets.
type State struct {
	Primary domain.FilterSet

	comparisons [domain.MaxComparisons]domain.FilterSet
	n           int
}

// NewState returns a state with an unconstrained primary and no comparisons.
func NewState() *State {
	return &State{Primary: domain.DefaultFilterSet()}
}

// NewComparison returns the initial comparison set: the first available model
// is preselected, everything else unconstrained.
func NewComparison(opts Options) domain.FilterSet {
	fs := domain.DefaultFilterSet()
	if len(opts.Models) > 0 {
		fs.Model = domain.Exactly(opts.Models[0])
	}
	return fs
}

// Len returns the number of comparison sets.
func (s *State) Len() int { return s.n }

// Comparisons returns a copy of the comparison sets in order.
func (s *State) Comparisons() []domain.FilterSet {
	out := make([]domain.FilterSet, s.n)
	copy(out, s.comparisons[:s.n])
	return out
}

// Sets returns the primary followed by the comparisons; index 0 is the primary.
func (s *State) Sets() []domain.FilterSet {
	out := make([]domain.FilterSet, 0, s.n+1)
	out = append(out, s.Primary)
	return append(out, s.comparisons[:s.n]...)
}

// Comparison returns the comparison set at index i.
func (s *State) Comparison(i int) (domain.FilterSet, error) {
	if i < 0 || i >= s.n {
		return domain.FilterSet{}, ErrComparisonIndex
	}
	return s.comparisons[i], nil
}

// AddComparison appends fs and returns its index.
func (s *State) AddComparison(fs domain.FilterSet) (int, error) {
	if s.n >= domain.MaxComparisons {
		return -1, ErrTooManyComparisons
	}
	s.comparisons[s.n] = fs
	s.n++
	return s.n - 1, nil
}

// RemoveComparison removes the set at index i, keeping the others in order.
func (s *State) RemoveComparison(i int) error {
	if i < 0 || i >= s.n {
		return ErrComparisonIndex
	}
	copy(s.comparisons[i:], s.comparisons[i+1:s.n])
	s.n--
	s.comparisons[s.n] = domain.FilterSet{}
	return nil
}

// UpdateComparison applies fn to the set at index i in place.
func (s *State) UpdateComparison(i int, fn func(*domain.FilterSet)) error {
	if i < 0 || i >= s.n {
		return ErrComparisonIndex
	}
	fn(&s.comparisons[i])
	return nil
}

// UpdatePrimary applies fn to the primary set in place.
func (s *State) UpdatePrimary(fn func(*domain.FilterSet)) {
	fn(&s.Primary)
}

// Clone returns an independent copy, ranges included.
func (s *State) Clone() *State {
	c := *s
	c.Primary = cloneSet(s.Primary)
	for i := 0; i < c.n; i++ {
		c.comparisons[i] = cloneSet(s.comparisons[i])
	}
	return &c
}

func cloneSet(fs domain.FilterSet) domain.FilterSet {
	if fs.MileageRange != nil {
		r := *fs.MileageRange
		fs.MileageRange = &r
	}
	if fs.PriceRange != nil {
		r := *fs.PriceRange
		fs.PriceRange = &r
	}
	return fs
}

type stateJSON struct {
	Primary     domain.FilterSet   `json:"primary"`
	Comparisons []domain.FilterSet `json:"comparisons"`
}

// MarshalJSON encodes the state as {"primary": ..., "comparisons": [...]}.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{Primary: s.Primary, Comparisons: s.Comparisons()})
}

// UnmarshalJSON decodes the object form; more than MaxComparisons comparisons is an error.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode filter state: %w", err)
	}
	if len(raw.Comparisons) > domain.MaxComparisons {
		return ErrTooManyComparisons
	}
	next := State{Primary: raw.Primary}
	for _, fs := range raw.Comparisons {
		if _, err := next.AddComparison(fs); err != nil {
			return err
		}
	}
	*s = next
	return nil
}
