package alloc

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Optimizer fallback notes, reported alongside the uniform fallback
// so callers can see why the numeric path was abandoned.
const (
	fallbackNone          = ""
	fallbackBadCovariance = "covariance_shape_mismatch"
	fallbackDegenerate    = "degenerate_inputs"
	fallbackNoConverge    = "solver_non_convergence"
)

const (
	pgdIterations = 600
	pgdStep       = 0.05
	pgdTolerance  = 1e-10
	// Synthetic per-asset variance substituted when the supplied
	// covariance does not match the asset count.
	syntheticVariance = 0.1
	returnPenalty     = 50.0
)

// optimized runs the convex-optimization disciplines. Any failure
// mode resolves to uniform weights; nothing propagates to the caller.
func optimized(symbols []string, opts Options) map[string]float64 {
	n := len(symbols)
	if n == 1 {
		return map[string]float64{symbols[0]: 1}
	}

	mu := expectedReturns(symbols, opts)
	cov, note := covarianceMatrix(symbols, opts)
	if note != fallbackNone {
		// The original behavior silently substituted a synthetic
		// diagonal; keep the substitution but report it.
		log.Warn().Str("reason", note).Int("assets", n).
			Msg("optimizer covariance substituted with synthetic diagonal")
	}

	var w []float64
	switch opts.Method {
	case MethodMinVariance:
		w, note = solveProjected(n, cov, func(wv, grad *mat.VecDense) float64 {
			return varianceObjective(cov, wv, grad)
		})
	case MethodMeanVariance:
		if opts.TargetReturn != nil {
			target := *opts.TargetReturn
			w, note = solveProjected(n, cov, func(wv, grad *mat.VecDense) float64 {
				return targetReturnObjective(cov, mu, target, wv, grad)
			})
			break
		}
		fallthrough
	case MethodMaxSharpe:
		w, note = solveProjected(n, cov, func(wv, grad *mat.VecDense) float64 {
			return negSharpeObjective(cov, mu, wv, grad)
		})
	}

	if note != fallbackNone || w == nil {
		log.Warn().Str("method", string(opts.Method)).Str("reason", note).
			Msg("optimizer failed, falling back to uniform weights")
		return uniform(symbols)
	}
	out := make(map[string]float64, n)
	for i, sym := range symbols {
		out[sym] = w[i]
	}
	return out
}

func expectedReturns(symbols []string, opts Options) *mat.VecDense {
	mu := mat.NewVecDense(len(symbols), nil)
	for i, sym := range symbols {
		if opts.ExpectedReturns != nil {
			mu.SetVec(i, opts.ExpectedReturns[sym])
			continue
		}
		m, _ := meanStd(opts.Returns[sym])
		mu.SetVec(i, m)
	}
	return mu
}

// covarianceMatrix builds the n x n covariance, preferring the
// supplied matrix, then sample covariance from return history, then a
// synthetic diagonal.
func covarianceMatrix(symbols []string, opts Options) (*mat.SymDense, string) {
	n := len(symbols)
	if opts.Covariance != nil {
		if len(opts.Covariance) != n {
			return syntheticDiagonal(n), fallbackBadCovariance
		}
		sym := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			if len(opts.Covariance[i]) != n {
				return syntheticDiagonal(n), fallbackBadCovariance
			}
			for j := i; j < n; j++ {
				v := opts.Covariance[i][j]
				if math.IsNaN(v) || math.IsInf(v, 0) {
					v = 0
				}
				sym.SetSym(i, j, v)
			}
		}
		return sym, fallbackNone
	}
	return sampleCovariance(symbols, opts.Returns)
}

func sampleCovariance(symbols []string, returns map[string][]float64) (*mat.SymDense, string) {
	n := len(symbols)
	minLen := math.MaxInt32
	for _, sym := range symbols {
		if l := len(returns[sym]); l < minLen {
			minLen = l
		}
	}
	if minLen < 2 || minLen == math.MaxInt32 {
		return syntheticDiagonal(n), fallbackBadCovariance
	}
	means := make([]float64, n)
	series := make([][]float64, n)
	for i, sym := range symbols {
		series[i] = returns[sym][len(returns[sym])-minLen:]
		m, _ := meanStd(series[i])
		means[i] = m
	}
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sum := 0.0
			for k := 0; k < minLen; k++ {
				sum += (series[i][k] - means[i]) * (series[j][k] - means[j])
			}
			cov.SetSym(i, j, sum/float64(minLen-1))
		}
	}
	return cov, fallbackNone
}

func syntheticDiagonal(n int) *mat.SymDense {
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		cov.SetSym(i, i, syntheticVariance)
	}
	return cov
}

// objectiveFn writes the gradient at wv into grad and returns the
// objective value.
type objectiveFn func(wv, grad *mat.VecDense) float64

// solveProjected minimizes the objective over the long-only simplex
// {w >= 0, sum w = 1} by projected gradient descent. Per-asset bounds
// of [0,1] hold by construction on the simplex.
func solveProjected(n int, cov *mat.SymDense, objective objectiveFn) ([]float64, string) {
	w := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		w.SetVec(i, 1.0/float64(n))
	}
	grad := mat.NewVecDense(n, nil)

	prev := objective(w, grad)
	if !isFinite(prev) {
		return nil, fallbackDegenerate
	}
	for iter := 0; iter < pgdIterations; iter++ {
		for i := 0; i < n; i++ {
			w.SetVec(i, w.AtVec(i)-pgdStep*grad.AtVec(i))
		}
		projectSimplex(w)

		obj := objective(w, grad)
		if !isFinite(obj) {
			return nil, fallbackNoConverge
		}
		if math.Abs(prev-obj) < pgdTolerance {
			prev = obj
			break
		}
		prev = obj
	}

	out := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		v := w.AtVec(i)
		if v < 0 {
			v = 0
		}
		out[i] = v
		total += v
	}
	if total <= 0 || !isFinite(total) {
		return nil, fallbackNoConverge
	}
	for i := range out {
		out[i] /= total
	}
	return out, fallbackNone
}

func varianceObjective(cov *mat.SymDense, wv, grad *mat.VecDense) float64 {
	var sw mat.VecDense
	sw.MulVec(cov, wv)
	variance := mat.Dot(wv, &sw)
	for i := 0; i < wv.Len(); i++ {
		grad.SetVec(i, 2*sw.AtVec(i))
	}
	return variance
}

// negSharpeObjective minimizes -(w'mu)/sqrt(w'Sigma w).
func negSharpeObjective(cov *mat.SymDense, mu, wv, grad *mat.VecDense) float64 {
	var sw mat.VecDense
	sw.MulVec(cov, wv)
	variance := mat.Dot(wv, &sw)
	if variance <= 1e-16 {
		return math.Inf(1)
	}
	s := math.Sqrt(variance)
	ret := mat.Dot(wv, mu)
	for i := 0; i < wv.Len(); i++ {
		grad.SetVec(i, -mu.AtVec(i)/s+ret*sw.AtVec(i)/(s*s*s))
	}
	return -ret / s
}

// targetReturnObjective minimizes variance with a quadratic penalty
// holding the expected return at the target.
func targetReturnObjective(cov *mat.SymDense, mu *mat.VecDense, target float64, wv, grad *mat.VecDense) float64 {
	var sw mat.VecDense
	sw.MulVec(cov, wv)
	variance := mat.Dot(wv, &sw)
	gap := mat.Dot(wv, mu) - target
	for i := 0; i < wv.Len(); i++ {
		grad.SetVec(i, 2*sw.AtVec(i)+2*returnPenalty*gap*mu.AtVec(i))
	}
	return variance + returnPenalty*gap*gap
}

// projectSimplex performs Euclidean projection onto the probability
// simplex (Duchi et al. 2008).
func projectSimplex(w *mat.VecDense) {
	n := w.Len()
	sorted := make([]float64, n)
	for i := 0; i < n; i++ {
		sorted[i] = w.AtVec(i)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	cum := 0.0
	rho := -1
	var theta float64
	for i := 0; i < n; i++ {
		cum += sorted[i]
		t := (cum - 1) / float64(i+1)
		if sorted[i]-t > 0 {
			rho = i
			theta = t
		}
	}
	if rho < 0 {
		for i := 0; i < n; i++ {
			w.SetVec(i, 1.0/float64(n))
		}
		return
	}
	for i := 0; i < n; i++ {
		v := w.AtVec(i) - theta
		if v < 0 {
			v = 0
		}
		w.SetVec(i, v)
	}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
