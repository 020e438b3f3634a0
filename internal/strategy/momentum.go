package strategy

import (
	"math"
	"sort"

	"github.com/marketforge/portengine/internal/market"
	"github.com/marketforge/portengine/internal/signal"
)

// Momentum buys when the fast moving average crosses above the slow
// one and sells on the opposite cross. Confidence grows with the gap
// between the averages.
type Momentum struct {
	Fast int `yaml:"fast"`
	Slow int `yaml:"slow"`
}

func NewMomentum(fast, slow int) *Momentum {
	if fast <= 0 {
		fast = 5
	}
	if slow <= fast {
		slow = fast * 4
	}
	return &Momentum{Fast: fast, Slow: slow}
}

func (s *Momentum) Name() string { return "sma_momentum" }

func (s *Momentum) Signals(snap market.Snapshot) []signal.Signal {
	var out []signal.Signal
	for _, sym := range sortedSymbols(snap.History) {
		closes := market.Closes(snap.History[sym])
		fast := sma(closes, s.Fast)
		slow := sma(closes, s.Slow)
		if math.IsNaN(fast) || math.IsNaN(slow) || slow == 0 {
			continue
		}

		gap := (fast - slow) / slow
		dir := signal.Hold
		if gap > 0 {
			dir = signal.Buy
		} else if gap < 0 {
			dir = signal.Sell
		}
		out = append(out, signal.Signal{
			Symbol:     sym,
			Strategy:   s.Name(),
			Direction:  dir,
			Confidence: clamp01(math.Abs(gap) * 10),
		})
	}
	return out
}

func sortedSymbols(history map[string][]market.Bar) []string {
	syms := make([]string, 0, len(history))
	for sym := range history {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
