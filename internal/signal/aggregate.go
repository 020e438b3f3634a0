package signal

import (
	"sort"
)

// Mode selects the aggregation rule.
type Mode string

const (
	ModeMajority     Mode = "majority"
	ModeStrongBuy    Mode = "strong_buy"
	ModeWeighted     Mode = "weighted"
	ModeIgnoreLowest Mode = "ignore_lowest"
)

// AggregatorConfig carries the aggregation thresholds. The defaults
// are conventional rather than derived, so every one of them is
// configurable.
type AggregatorConfig struct {
	Mode              Mode    `yaml:"mode"`
	MajorityThreshold float64 `yaml:"majority_threshold"`   // weighted buy/sell mass must exceed this
	StrongBuyScore    float64 `yaml:"strong_buy_score"`     // a single strategy at/above this forces BUY
	WeightedThreshold float64 `yaml:"weighted_threshold"`   // |signed weighted sum| must exceed this
	IgnoreLowestN     int     `yaml:"ignore_lowest_n"`      // strategies dropped in ignore_lowest mode
	DefaultScore      float64 `yaml:"default_quality_score"`
}

// DefaultAggregatorConfig returns the conventional thresholds.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Mode:              ModeMajority,
		MajorityThreshold: 0.5,
		StrongBuyScore:    0.8,
		WeightedThreshold: 0.1,
		IgnoreLowestN:     1,
		DefaultScore:      0.5,
	}
}

// Aggregator combines per-strategy signal series into one consensus
// series. It holds no state between calls.
type Aggregator struct {
	cfg AggregatorConfig
}

// NewAggregator builds an aggregator; a zero Mode falls back to
// majority.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.Mode == "" {
		cfg.Mode = ModeMajority
	}
	return &Aggregator{cfg: cfg}
}

// Aggregate folds per-strategy date series into a consensus series.
// weights default to equal and are renormalized over the given
// strategies; scores feed strong_buy and ignore_lowest. Dates on
// which no strategy reported are excluded from the output, never
// defaulted to HOLD.
func (a *Aggregator) Aggregate(signals map[string]Series, weights, scores map[string]float64) Series {
	if len(signals) == 0 {
		return Series{}
	}

	dateSet := make(map[string]struct{})
	for _, s := range signals {
		for d := range s {
			dateSet[d] = struct{}{}
		}
	}
	if len(dateSet) == 0 {
		return Series{}
	}
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	ids := make([]string, 0, len(signals))
	for id := range signals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sc := a.qualityScores(ids, scores)
	// Weights normalize over the full strategy set before any drop: in
	// ignore_lowest mode the removed strategies' mass is not
	// redistributed, so the survivors' votes carry proportionally less
	// weight.
	w := normalizeWeights(ids, weights)
	if a.cfg.Mode == ModeIgnoreLowest && len(ids) > a.cfg.IgnoreLowestN {
		ids = dropLowest(ids, sc, a.cfg.IgnoreLowestN)
	}

	out := make(Series, len(dates))
	for _, d := range dates {
		vals := make([]float64, len(ids))
		ws := make([]float64, len(ids))
		for i, id := range ids {
			if dir, ok := signals[id][d]; ok {
				vals[i] = float64(dir)
			}
			ws[i] = w[id]
		}
		switch a.cfg.Mode {
		case ModeStrongBuy:
			out[d] = a.strongBuy(vals, ids, sc)
		case ModeWeighted:
			out[d] = a.weighted(vals, ws)
		default: // majority and ignore_lowest share the vote
			out[d] = a.majority(vals, ws)
		}
	}
	return out
}

// DecideCycle aggregates one cycle's raw signals into a consensus
// decision per symbol, using the configured mode with per-strategy
// weights and quality scores.
func (a *Aggregator) DecideCycle(sigs []Signal, weights, scores map[string]float64) map[string]Direction {
	bySymbol := make(map[string]map[string]Series)
	for _, s := range sigs {
		if s.Symbol == "" || s.Strategy == "" {
			continue
		}
		if bySymbol[s.Symbol] == nil {
			bySymbol[s.Symbol] = make(map[string]Series)
		}
		bySymbol[s.Symbol][s.Strategy] = Series{"cycle": s.Direction}
	}
	out := make(map[string]Direction, len(bySymbol))
	for sym, perStrategy := range bySymbol {
		if dir, ok := a.Aggregate(perStrategy, weights, scores)["cycle"]; ok {
			out[sym] = dir
		}
	}
	return out
}

func (a *Aggregator) majority(vals, ws []float64) Direction {
	buy, sell := 0.0, 0.0
	for i, v := range vals {
		if v > 0 {
			buy += ws[i]
		} else if v < 0 {
			sell += ws[i]
		}
	}
	if buy > a.cfg.MajorityThreshold {
		return Buy
	}
	if sell > a.cfg.MajorityThreshold {
		return Sell
	}
	return Hold
}

func (a *Aggregator) strongBuy(vals []float64, ids []string, scores map[string]float64) Direction {
	for i, v := range vals {
		if v > 0 && scores[ids[i]] >= a.cfg.StrongBuyScore {
			return Buy
		}
	}
	sells := 0
	for _, v := range vals {
		if v < 0 {
			sells++
		}
	}
	if sells*2 > len(vals) {
		return Sell
	}
	return Hold
}

func (a *Aggregator) weighted(vals, ws []float64) Direction {
	sum := 0.0
	for i, v := range vals {
		sum += v * ws[i]
	}
	if sum > a.cfg.WeightedThreshold {
		return Buy
	}
	if sum < -a.cfg.WeightedThreshold {
		return Sell
	}
	return Hold
}

func (a *Aggregator) qualityScores(ids []string, scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		if scores == nil {
			out[id] = a.cfg.DefaultScore
		} else {
			out[id] = scores[id]
		}
	}
	return out
}

func dropLowest(ids []string, scores map[string]float64, n int) []string {
	sorted := append([]string(nil), ids...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scores[sorted[i]] < scores[sorted[j]]
	})
	return sorted[n:]
}

func normalizeWeights(ids []string, weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(ids))
	if len(ids) == 0 {
		return out
	}
	equal := 1.0 / float64(len(ids))
	if len(weights) == 0 {
		for _, id := range ids {
			out[id] = equal
		}
		return out
	}
	total := 0.0
	for _, id := range ids {
		total += weights[id]
	}
	if total <= 0 {
		for _, id := range ids {
			out[id] = equal
		}
		return out
	}
	for _, id := range ids {
		out[id] = weights[id] / total
	}
	return out
}
