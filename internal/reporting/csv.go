package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the comparison table as CSV string, one line per (metric, set).
// Missing values are empty cells.
func RenderCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,metric,set_index,set_description,value,flag\n")

	// Rows
	for _, row := range r.Comparison {
		for i, v := range row.Values {
			value := ""
			if v != nil {
				value = formatFixed(v, 2)
			}
			description := ""
			if i < len(r.FilterSets) {
				description = r.FilterSets[i].Description
			}
			sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%s,%s\n",
				r.RunID,
				row.Field,
				i,
				csvQuote(description),
				value,
				row.Flags[i],
			))
		}
	}

	return sb.String()
}

// RenderMarketCSV renders the market buckets as CSV string.
func RenderMarketCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("year,count\n")
	for _, m := range r.Market {
		sb.WriteString(fmt.Sprintf("%d,%d\n", m.Year, m.Count))
	}

	return sb.String()
}

// csvQuote quotes fields containing separators or quotes.
func csvQuote(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
