package reporting

import (
	"math"

	"github.com/shopspring/decimal"

	"car-market-lab/internal/domain"
)

// formatAmount rounds to whole currency units; nil renders as "-".
func formatAmount(v *float64) string {
	return formatFixed(v, 0)
}

// formatFixed rounds half away from zero to places decimals; nil renders as "-".
func formatFixed(v *float64, places int32) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return "-"
	}
	return decimal.NewFromFloat(*v).StringFixed(places)
}

func formatField(field domain.MetricField, v *float64) string {
	switch field {
	case domain.MetricSampleSize:
		if v == nil {
			return "0"
		}
		return formatFixed(v, 0)
	case domain.MetricAverageTimeOnMarket:
		return formatFixed(v, 1)
	default:
		return formatAmount(v)
	}
}

func flagMark(f domain.Flag) string {
	switch f {
	case domain.FlagBest:
		return " (best)"
	case domain.FlagWorst:
		return " (worst)"
	default:
		return ""
	}
}
