// Package alloc turns per-symbol scores into target capital weights
// under a selectable allocation discipline. Every discipline returns
// a full long-only weight vector summing to one (or an empty map on
// empty input); degenerate inputs degrade to uniform weights rather
// than surfacing an error.
package alloc

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"
)

// Method selects the allocation discipline.
type Method string

const (
	MethodEqual        Method = "equal"
	MethodRiskParity   Method = "risk_parity"
	MethodVolTarget    Method = "vol_target"
	MethodKelly        Method = "kelly"
	MethodMeanVariance Method = "mean_variance"
	MethodMaxSharpe    Method = "max_sharpe"
	MethodMinVariance  Method = "min_variance"
)

// Options carries the per-discipline inputs. Fields irrelevant to the
// selected method are ignored.
type Options struct {
	Method Method

	// Volatilities per symbol (annualized), for risk parity and
	// volatility targeting. Risk parity degrades to equal weights
	// when absent.
	Volatilities map[string]float64

	// TargetVol is the portfolio volatility target for vol_target
	// and the optional Kelly rescale.
	TargetVol float64

	// KellyFraction scales the raw Kelly bet for conservatism.
	// Zero means the 0.25 default.
	KellyFraction float64

	// Returns is per-symbol daily return history, consumed by the
	// Kelly discipline and, when ExpectedReturns/Covariance are not
	// supplied, by the optimizer disciplines.
	Returns map[string][]float64

	// ExpectedReturns and Covariance feed the optimizer disciplines
	// directly. Covariance rows/cols align with the sorted symbol
	// order.
	ExpectedReturns map[string]float64
	Covariance      [][]float64

	// TargetReturn, when set, turns mean_variance into minimum
	// variance at that expected return.
	TargetReturn *float64
}

const (
	defaultKellyFraction = 0.25
	kellyCap             = 0.5
	volTargetMaxScale    = 3.0
	kellyVolMaxScale     = 2.0
	minKellyObservations = 5
)

// Allocate converts scores and capital into target monetary amounts.
func Allocate(capital float64, scores map[string]float64, opts Options) map[string]float64 {
	if capital <= 0 {
		return map[string]float64{}
	}
	weights := Weights(scores, opts)
	out := make(map[string]float64, len(weights))
	for sym, w := range weights {
		out[sym] = capital * w
	}
	return out
}

// Weights computes the normalized weight vector for the selected
// discipline.
func Weights(scores map[string]float64, opts Options) map[string]float64 {
	symbols := sortedSymbols(scores)
	if len(symbols) == 0 {
		return map[string]float64{}
	}

	switch opts.Method {
	case MethodRiskParity:
		return riskParity(symbols, opts.Volatilities)
	case MethodVolTarget:
		return volTarget(symbols, scores, opts.Volatilities, opts.TargetVol)
	case MethodKelly:
		return kelly(symbols, opts)
	case MethodMeanVariance, MethodMaxSharpe, MethodMinVariance:
		return optimized(symbols, opts)
	default:
		return scoreWeights(symbols, scores)
	}
}

// scoreWeights normalizes nonnegative scores; all-nonpositive input
// falls back to uniform 1/n.
func scoreWeights(symbols []string, scores map[string]float64) map[string]float64 {
	w := make([]float64, len(symbols))
	total := 0.0
	for i, sym := range symbols {
		if s := scores[sym]; s > 0 {
			w[i] = s
			total += s
		}
	}
	if total <= 0 {
		return uniform(symbols)
	}
	out := make(map[string]float64, len(symbols))
	for i, sym := range symbols {
		out[sym] = w[i] / total
	}
	return out
}

func riskParity(symbols []string, vols map[string]float64) map[string]float64 {
	if len(vols) == 0 {
		return uniform(symbols)
	}
	inv := make([]float64, len(symbols))
	total := 0.0
	for i, sym := range symbols {
		v := vols[sym]
		if v <= 0 {
			continue
		}
		inv[i] = 1.0 / v
		total += inv[i]
	}
	if total <= 0 {
		return uniform(symbols)
	}
	out := make(map[string]float64, len(symbols))
	for i, sym := range symbols {
		out[sym] = inv[i] / total
	}
	return out
}

// volTarget scales the score-weighted portfolio so its weighted
// volatility matches the target, capping the scale at 3x to avoid
// runaway leverage, then renormalizes to a unit weight vector.
func volTarget(symbols []string, scores map[string]float64, vols map[string]float64, target float64) map[string]float64 {
	base := scoreWeights(symbols, scores)
	if len(vols) == 0 || target <= 0 {
		return base
	}
	portVol := 0.0
	for sym, w := range base {
		v := vols[sym]
		if v <= 0 {
			v = 1e-6
		}
		portVol += w * v
	}
	if portVol <= 0 {
		return base
	}
	scale := math.Min(target/portVol, volTargetMaxScale)
	total := 0.0
	for sym := range base {
		base[sym] *= scale
		total += base[sym]
	}
	if total <= 0 {
		return uniform(symbols)
	}
	for sym := range base {
		base[sym] /= total
	}
	return base
}

// kelly sizes each symbol by fractional Kelly: (mean return)/(variance)
// scaled by the conservatism fraction and clipped to [0, 0.5], then
// renormalized. When a portfolio volatility target is supplied the
// whole vector is rescaled toward it, capped at 2x.
func kelly(symbols []string, opts Options) map[string]float64 {
	fraction := opts.KellyFraction
	if fraction <= 0 {
		fraction = defaultKellyFraction
	}
	raw := make(map[string]float64)
	vols := make(map[string]float64)
	for _, sym := range symbols {
		rets := opts.Returns[sym]
		if len(rets) < minKellyObservations {
			continue
		}
		mu, sigma := meanStd(rets)
		variance := sigma * sigma
		if variance <= 1e-16 {
			variance = 1e-16
		}
		f := mu / variance * fraction
		f = math.Max(0, math.Min(kellyCap, f))
		raw[sym] = f
		vols[sym] = sigma
	}
	total := 0.0
	for _, f := range raw {
		total += f
	}
	if total <= 0 {
		log.Debug().Int("symbols", len(symbols)).Msg("kelly degenerate, falling back to equal weights")
		return uniform(symbols)
	}
	for sym := range raw {
		raw[sym] /= total
	}

	if opts.TargetVol > 0 {
		portVol := 0.0
		for sym, w := range raw {
			portVol += w * vols[sym]
		}
		if portVol > 1e-12 {
			scale := math.Min(opts.TargetVol/portVol, kellyVolMaxScale)
			total = 0.0
			for sym := range raw {
				raw[sym] *= scale
				total += raw[sym]
			}
			if total > 0 {
				for sym := range raw {
					raw[sym] /= total
				}
			}
		}
	}
	return raw
}

func uniform(symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	w := 1.0 / float64(len(symbols))
	for _, sym := range symbols {
		out[sym] = w
	}
	return out
}

func sortedSymbols(scores map[string]float64) []string {
	out := make([]string, 0, len(scores))
	for sym := range scores {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		d := x - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(xs)))
	return mean, std
}
