package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_EmptyInput(t *testing.T) {
	a := NewAggregator(DefaultAggregatorConfig())
	assert.Empty(t, a.Aggregate(nil, nil, nil))
	assert.Empty(t, a.Aggregate(map[string]Series{"s1": {}}, nil, nil))
}

func TestAggregate_MajorityEqualWeights(t *testing.T) {
	a := NewAggregator(DefaultAggregatorConfig())
	signals := map[string]Series{
		"momentum":  {"2024-01-02": Buy, "2024-01-03": Sell},
		"meanrev":   {"2024-01-02": Buy, "2024-01-03": Sell},
		"breakout":  {"2024-01-02": Hold, "2024-01-03": Buy},
	}

	out := a.Aggregate(signals, nil, nil)

	// 2/3 buy mass = 0.667 > 0.5 threshold.
	assert.Equal(t, Buy, out["2024-01-02"])
	assert.Equal(t, Sell, out["2024-01-03"])
}

func TestAggregate_MajorityTie_Holds(t *testing.T) {
	a := NewAggregator(DefaultAggregatorConfig())
	signals := map[string]Series{
		"s1": {"2024-01-02": Buy},
		"s2": {"2024-01-02": Sell},
	}
	// 0.5 buy mass does not exceed the 0.5 threshold.
	assert.Equal(t, Hold, a.Aggregate(signals, nil, nil)["2024-01-02"])
}

func TestAggregate_NonReportingDateExcluded(t *testing.T) {
	a := NewAggregator(DefaultAggregatorConfig())
	signals := map[string]Series{
		"s1": {"2024-01-02": Buy},
		"s2": {"2024-01-03": Sell},
	}
	out := a.Aggregate(signals, nil, nil)

	// Both dates have at least one reporting strategy, the absent
	// strategy counts as HOLD within the vote.
	assert.Len(t, out, 2)

	// A date nobody reported never appears.
	_, ok := out["2024-01-04"]
	assert.False(t, ok)
}

func TestAggregate_StrongBuyOverridesOthers(t *testing.T) {
	cfg := DefaultAggregatorConfig()
	cfg.Mode = ModeStrongBuy
	a := NewAggregator(cfg)

	signals := map[string]Series{
		"star":  {"2024-01-02": Buy},
		"bear1": {"2024-01-02": Sell},
		"bear2": {"2024-01-02": Sell},
	}
	scores := map[string]float64{"star": 0.9, "bear1": 0.3, "bear2": 0.3}

	assert.Equal(t, Buy, a.Aggregate(signals, nil, scores)["2024-01-02"])

	// Without a strong enough buyer the sell majority wins.
	scores["star"] = 0.4
	assert.Equal(t, Sell, a.Aggregate(signals, nil, scores)["2024-01-02"])
}

func TestAggregate_WeightedThreshold(t *testing.T) {
	cfg := DefaultAggregatorConfig()
	cfg.Mode = ModeWeighted
	a := NewAggregator(cfg)

	signals := map[string]Series{
		"s1": {"2024-01-02": Buy},
		"s2": {"2024-01-02": Hold},
	}
	// Signed sum 0.5 > 0.1 threshold.
	assert.Equal(t, Buy, a.Aggregate(signals, nil, nil)["2024-01-02"])

	// With a dominant sell weight the sum flips negative.
	weights := map[string]float64{"s1": 0.1, "s2": 0.9}
	signals["s2"] = Series{"2024-01-02": Sell}
	assert.Equal(t, Sell, a.Aggregate(signals, weights, nil)["2024-01-02"])
}

func TestAggregate_IgnoreLowestDropsWorstStrategy(t *testing.T) {
	cfg := DefaultAggregatorConfig()
	cfg.Mode = ModeIgnoreLowest
	cfg.IgnoreLowestN = 1
	a := NewAggregator(cfg)

	signals := map[string]Series{
		"good1": {"2024-01-02": Buy},
		"good2": {"2024-01-02": Buy},
		"noisy": {"2024-01-02": Sell},
	}
	scores := map[string]float64{"good1": 0.8, "good2": 0.7, "noisy": 0.1}

	// With the noisy strategy dropped the buy mass is 2/3 of the full
	// set, still past the 0.5 threshold.
	assert.Equal(t, Buy, a.Aggregate(signals, nil, scores)["2024-01-02"])
}

func TestAggregate_IgnoreLowestKeepsFullSetWeighting(t *testing.T) {
	cfg := DefaultAggregatorConfig()
	cfg.Mode = ModeIgnoreLowest
	cfg.IgnoreLowestN = 2
	a := NewAggregator(cfg)

	signals := map[string]Series{
		"a": {"2024-01-02": Buy},
		"b": {"2024-01-02": Buy},
		"c": {"2024-01-02": Sell},
		"d": {"2024-01-02": Sell},
	}
	scores := map[string]float64{"a": 0.9, "b": 0.8, "c": 0.2, "d": 0.1}

	// The survivors keep their quarter weights; a 0.5 buy mass does
	// not clear the 0.5 threshold once the dropped strategies' votes
	// are gone. Renormalizing over the survivors would flip this to a
	// buy.
	assert.Equal(t, Hold, a.Aggregate(signals, nil, scores)["2024-01-02"])
}

func TestDecideCycle_GroupsBySymbol(t *testing.T) {
	a := NewAggregator(DefaultAggregatorConfig())
	sigs := []Signal{
		{Symbol: "AAPL", Strategy: "s1", Direction: Buy, Confidence: 0.9},
		{Symbol: "AAPL", Strategy: "s2", Direction: Buy, Confidence: 0.6},
		{Symbol: "MSFT", Strategy: "s1", Direction: Sell, Confidence: 0.8},
		{Symbol: "MSFT", Strategy: "s2", Direction: Sell, Confidence: 0.7},
		{Symbol: "", Strategy: "s1", Direction: Buy},
	}

	out := a.DecideCycle(sigs, nil, nil)
	assert.Equal(t, Buy, out["AAPL"])
	assert.Equal(t, Sell, out["MSFT"])
	assert.Len(t, out, 2)
}

func TestNormalizeWeights_NonPositiveFallsBackToEqual(t *testing.T) {
	w := normalizeWeights([]string{"a", "b"}, map[string]float64{"a": 0, "b": 0})
	assert.InDelta(t, 0.5, w["a"], 1e-9)
	assert.InDelta(t, 0.5, w["b"], 1e-9)
}
