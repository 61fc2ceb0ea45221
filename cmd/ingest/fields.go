package main

import (
	"sort"

	"car-market-lab/internal/domain"
)

// sortedFields returns the keys of missing in declaration order.
func sortedFields(missing map[domain.Field]int) []domain.Field {
	out := make([]domain.Field, 0, len(missing))
	for f := range missing {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
