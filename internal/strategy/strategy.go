// Package strategy holds the signal generators. A strategy looks at a
// market snapshot and emits directional signals; it never sizes
// positions or touches the book.
package strategy

import (
	"math"

	"github.com/marketforge/portengine/internal/market"
	"github.com/marketforge/portengine/internal/signal"
)

// Strategy turns a market snapshot into signals. Implementations must
// be pure with respect to the snapshot: same input, same signals.
type Strategy interface {
	Name() string
	Signals(snap market.Snapshot) []signal.Signal
}

func sma(xs []float64, n int) float64 {
	if n <= 0 || len(xs) < n {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs[len(xs)-n:] {
		sum += x
	}
	return sum / float64(n)
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
