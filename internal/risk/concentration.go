package risk

import (
	"fmt"
	"sort"
)

// ConcentrationLimits bound how lopsided the book may get. Breaches
// are audit findings, not trade blocks.
type ConcentrationLimits struct {
	MaxSingle float64 `yaml:"max_single"` // largest position / equity
	MaxTop3   float64 `yaml:"max_top3"`
	MaxTop10  float64 `yaml:"max_top10"`
}

func DefaultConcentrationLimits() ConcentrationLimits {
	return ConcentrationLimits{MaxSingle: 0.2, MaxTop3: 0.5, MaxTop10: 0.8}
}

// Check audits position values against total equity. It reports
// ok=false with a human-readable reason on the first breach found,
// checking single, top-3 and top-10 concentration in that order.
func (c ConcentrationLimits) Check(positions map[string]float64, totalEquity float64) (bool, string) {
	if len(positions) == 0 || totalEquity <= 0 {
		return true, ""
	}
	values := make([]float64, 0, len(positions))
	for _, v := range positions {
		if v > 0 {
			values = append(values, v)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	if c.MaxSingle > 0 && len(values) > 0 {
		if frac := values[0] / totalEquity; frac > c.MaxSingle {
			return false, fmt.Sprintf("largest position %.1f%% exceeds %.1f%% limit", frac*100, c.MaxSingle*100)
		}
	}
	if c.MaxTop3 > 0 {
		if frac := topShare(values, 3, totalEquity); frac > c.MaxTop3 {
			return false, fmt.Sprintf("top-3 concentration %.1f%% exceeds %.1f%% limit", frac*100, c.MaxTop3*100)
		}
	}
	if c.MaxTop10 > 0 {
		if frac := topShare(values, 10, totalEquity); frac > c.MaxTop10 {
			return false, fmt.Sprintf("top-10 concentration %.1f%% exceeds %.1f%% limit", frac*100, c.MaxTop10*100)
		}
	}
	return true, ""
}

func topShare(sortedDesc []float64, k int, equity float64) float64 {
	sum := 0.0
	for i, v := range sortedDesc {
		if i >= k {
			break
		}
		sum += v
	}
	return sum / equity
}
