package metrics

import "car-market-lab/internal/domain"

// Row is one metric across all compared sets.
// Values and Flags are indexed by set index: 0 is the primary set.
type Row struct {
	Field  domain.MetricField `json:"field"`
	Values []*float64         `json:"values"`
	Flags  []domain.Flag      `json:"flags"`
}

// Table is the cross-set comparison, one row per metric field in display order.
type Table struct {
	Sets int   `json:"sets"`
	Rows []Row `json:"rows"`
}

// Row returns the row for field.
func (t Table) Row(field domain.MetricField) (Row, bool) {
	for _, r := range t.Rows {
		if r.Field == field {
			return r, true
		}
	}
	return Row{}, false
}

// Compare builds the comparison table for the primary metrics followed by
// each comparison's metrics. Set order is positional, never arrival order.
func Compare(primary domain.Metrics, comparisons []domain.Metrics) Table {
	sets := make([]*domain.Metrics, 0, len(comparisons)+1)
	sets = append(sets, &primary)
	for i := range comparisons {
		sets = append(sets, &comparisons[i])
	}

	t := Table{Sets: len(sets), Rows: make([]Row, 0, len(domain.MetricFields))}
	for _, field := range domain.MetricFields {
		values := make([]*float64, len(sets))
		for i, m := range sets {
			values[i] = m.Value(field)
		}
		t.Rows = append(t.Rows, Row{
			Field:  field,
			Values: values,
			Flags:  Rank(field, values),
		})
	}
	return t
}

// Rank flags the best and worst values for field. Direction follows
// field.LowerIsBetter. Fewer than two non-nil values, or all of them equal,
// leave every flag empty. Ties at an extreme share the flag.
func Rank(field domain.MetricField, values []*float64) []domain.Flag {
	flags := make([]domain.Flag, len(values))

	var lo, hi float64
	count := 0
	for _, v := range values {
		if v == nil || !isFinite(*v) {
			continue
		}
		if count == 0 || *v < lo {
			lo = *v
		}
		if count == 0 || *v > hi {
			hi = *v
		}
		count++
	}
	if count < 2 || lo == hi {
		return flags
	}

	best, worst := hi, lo
	if field.LowerIsBetter() {
		best, worst = lo, hi
	}
	for i, v := range values {
		if v == nil || !isFinite(*v) {
			continue
		}
		switch *v {
		case best:
			flags[i] = domain.FlagBest
		case worst:
			flags[i] = domain.FlagWorst
		}
	}
	return flags
}
