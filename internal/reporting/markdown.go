package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Car Market Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: %s | Reference year: %d\n\n", r.RunID, r.CurrentYear))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Records | %d |\n", r.DataSummary.Records))
	sb.WriteString(fmt.Sprintf("| Accepted | %d |\n", r.DataSummary.Accepted))
	sb.WriteString(fmt.Sprintf("| Skipped | %d |\n", r.DataSummary.Skipped))
	sb.WriteString(fmt.Sprintf("| Duplicates | %d |\n", r.DataSummary.Duplicates))
	for _, m := range r.DataSummary.Missing {
		sb.WriteString(fmt.Sprintf("| Missing %s | %d |\n", m.Field, m.Count))
	}
	sb.WriteString("\n")

	// Filter Sets
	sb.WriteString("## Filter Sets\n\n")
	sb.WriteString("| Set | Filter | Listings |\n")
	sb.WriteString("|-----|--------|----------|\n")
	for _, fs := range r.FilterSets {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", fs.Label, escapeCell(fs.Description), fs.Count))
	}
	sb.WriteString("\n")

	// Comparison
	sb.WriteString("## Metrics Comparison\n\n")
	if len(r.Comparison) > 0 {
		sb.WriteString("| Metric |")
		sep := "|--------|"
		for _, fs := range r.FilterSets {
			sb.WriteString(fmt.Sprintf(" %s |", fs.Label))
			sep += strings.Repeat("-", len(fs.Label)+2) + "|"
		}
		sb.WriteString("\n" + sep + "\n")
		for _, row := range r.Comparison {
			sb.WriteString(fmt.Sprintf("| %s |", row.Label))
			for i, v := range row.Values {
				sb.WriteString(fmt.Sprintf(" %s%s |", formatField(row.Field, v), flagMark(row.Flags[i])))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No metrics available.\n")
	}
	sb.WriteString("\n")

	// Market
	sb.WriteString("## Market by Model Year\n\n")
	if len(r.Market) > 0 {
		sb.WriteString("| Year | Listings | Top Listings |\n")
		sb.WriteString("|------|----------|--------------|\n")
		for _, m := range r.Market {
			titles := make([]string, len(m.Top))
			for i, ref := range m.Top {
				titles[i] = fmt.Sprintf("[%s](%s)", escapeCell(ref.Title), ref.URL)
			}
			sb.WriteString(fmt.Sprintf("| %d | %d | %s |\n", m.Year, m.Count, strings.Join(titles, ", ")))
		}
	} else {
		sb.WriteString("No listings match the primary filter.\n")
	}
	sb.WriteString("\n")

	// Projection
	if p := r.Projection; p != nil {
		sb.WriteString("## Depreciation Projection\n\n")
		sb.WriteString(fmt.Sprintf("Comparables: %s %s\n\n", orDash(p.Model), orDash(p.FuelType)))
		if len(p.Steps) > 0 {
			sb.WriteString("| Year | Price | Mileage | Rate | Source |\n")
			sb.WriteString("|------|-------|---------|------|--------|\n")
			for _, s := range p.Steps {
				source := "curve"
				if s.Fallback {
					source = "fallback"
				}
				price, mileage, rate := s.Price, s.Mileage, s.Rate*100
				sb.WriteString(fmt.Sprintf("| +%d | %s | %s | %s%% | %s |\n",
					s.YearOffset, formatAmount(&price), formatAmount(&mileage), formatFixed(&rate, 1), source))
			}
		} else {
			sb.WriteString("No projection: starting price must be positive.\n")
		}
		sb.WriteString("\n")
	}

	// History
	if len(r.History) > 0 {
		sb.WriteString("## Previous Runs\n\n")
		sb.WriteString("| Run | Created | Filter | Listings | Average Price |\n")
		sb.WriteString("|-----|---------|--------|----------|---------------|\n")
		for _, h := range r.History {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s |\n",
				h.RunID, h.CreatedAt.Format(time.RFC3339), escapeCell(h.Description),
				h.SampleSize, formatAmount(h.Metrics.AveragePrice)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
