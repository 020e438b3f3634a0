package risk

import (
	"math"
	"sort"
)

// z-score for the 95% one-tailed confidence level.
const z95 = -1.645

// VaRHistorical estimates value-at-risk as the empirical quantile of
// the return history at the given confidence (e.g. 0.95). The result
// is a loss fraction, nonnegative; too little history reports zero.
func VaRHistorical(returns []float64, confidence float64) float64 {
	if len(returns) < 2 || confidence <= 0 || confidence >= 1 {
		return 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := (1 - confidence) * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	q := sorted[lo]
	if hi != lo {
		frac := idx - float64(lo)
		q = sorted[lo]*(1-frac) + sorted[hi]*frac
	}
	if q >= 0 {
		return 0
	}
	return -q
}

// VaRParametric estimates value-at-risk under a normal assumption at
// 95% confidence from the mean and standard deviation of returns.
func VaRParametric(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m, s := meanStd(returns)
	v := m + z95*s
	if v >= 0 {
		return 0
	}
	return -v
}

// CheckVaRBreach reports whether the day's realized P&L fell beyond
// the (negative) VaR limit. A zero limit disables the check; gains
// never breach.
func CheckVaRBreach(pnlPct, limit float64) bool {
	return limit > 0 && pnlPct < -limit
}

func meanStd(xs []float64) (mean, std float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= n
	if n < 2 {
		return mean, 0
	}
	for _, x := range xs {
		std += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(std / (n - 1))
}
