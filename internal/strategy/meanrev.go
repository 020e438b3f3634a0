package strategy

import (
	"math"

	"github.com/marketforge/portengine/internal/market"
	"github.com/marketforge/portengine/internal/signal"
)

// MeanReversion fades extremes: it buys when the latest close sits
// more than Entry standard deviations below the lookback mean and
// sells the mirror image.
type MeanReversion struct {
	Lookback int     `yaml:"lookback"`
	Entry    float64 `yaml:"entry"` // z-score that triggers a trade
}

func NewMeanReversion(lookback int, entry float64) *MeanReversion {
	if lookback < 2 {
		lookback = 20
	}
	if entry <= 0 {
		entry = 1.5
	}
	return &MeanReversion{Lookback: lookback, Entry: entry}
}

func (s *MeanReversion) Name() string { return "zscore_meanrev" }

func (s *MeanReversion) Signals(snap market.Snapshot) []signal.Signal {
	var out []signal.Signal
	for _, sym := range sortedSymbols(snap.History) {
		closes := market.Closes(snap.History[sym])
		if len(closes) < s.Lookback {
			continue
		}
		window := closes[len(closes)-s.Lookback:]
		mean, std := meanStd(window)
		if std == 0 {
			continue
		}

		z := (closes[len(closes)-1] - mean) / std
		dir := signal.Hold
		switch {
		case z <= -s.Entry:
			dir = signal.Buy
		case z >= s.Entry:
			dir = signal.Sell
		}
		out = append(out, signal.Signal{
			Symbol:     sym,
			Strategy:   s.Name(),
			Direction:  dir,
			Confidence: clamp01(math.Abs(z) / (2 * s.Entry)),
		})
	}
	return out
}
