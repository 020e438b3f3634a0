package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply_EmptyAndInvalidInput(t *testing.T) {
	l := DefaultLimits()
	assert.Empty(t, l.Apply(nil, 1_000_000))
	assert.Empty(t, l.Apply(map[string]float64{"A": 1000}, 0))
	assert.Empty(t, l.Apply(map[string]float64{"A": -5}, 1_000_000))
}

func TestApply_SingleNameCap(t *testing.T) {
	// Equity 1,000,000, cap 20%: A at 500,000 is clipped to
	// 200,000 while names at or under the cap are untouched.
	l := Limits{MaxSinglePct: 0.20, MaxSectorPct: 0, MaxPositions: 15, PhasedEntry: 1}
	proposed := map[string]float64{"A": 500_000, "B": 180_000, "C": 200_000}

	out := l.Apply(proposed, 1_000_000)

	assert.InDelta(t, 200_000, out["A"], 1e-9)
	assert.InDelta(t, 180_000, out["B"], 1e-9)
	assert.InDelta(t, 200_000, out["C"], 1e-9)
}

func TestApply_TopKSelection(t *testing.T) {
	l := Limits{MaxSinglePct: 1, MaxPositions: 2, PhasedEntry: 1}
	proposed := map[string]float64{"A": 300, "B": 200, "C": 100}

	out := l.Apply(proposed, 10_000)

	assert.Len(t, out, 2)
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "B")
	assert.NotContains(t, out, "C")
}

func TestApply_TopKDeterministicTiebreak(t *testing.T) {
	l := Limits{MaxSinglePct: 1, MaxPositions: 1, PhasedEntry: 1}
	proposed := map[string]float64{"ZZZ": 100, "AAA": 100}

	out := l.Apply(proposed, 10_000)
	assert.Contains(t, out, "AAA")
}

func TestApply_SectorCapScalesProportionally(t *testing.T) {
	l := Limits{
		MaxSinglePct: 0.50,
		MaxSectorPct: 0.30,
		MaxPositions: 10,
		PhasedEntry:  1,
		SectorMap:    map[string]string{"A": "tech", "B": "tech", "C": "energy"},
	}
	proposed := map[string]float64{"A": 300, "B": 100, "C": 100}

	out := l.Apply(proposed, 1000)

	// Tech totals 400 > 300 cap: scaled by 0.75 keeping proportions.
	assert.InDelta(t, 225, out["A"], 1e-9)
	assert.InDelta(t, 75, out["B"], 1e-9)
	assert.InDelta(t, 100, out["C"], 1e-9)
}

func TestApply_PhasedEntry(t *testing.T) {
	l := Limits{MaxSinglePct: 1, MaxPositions: 10, PhasedEntry: 0.5}
	out := l.Apply(map[string]float64{"A": 1000}, 100_000)
	assert.InDelta(t, 500, out["A"], 1e-9)
}

func TestApply_OnlyPositiveOutputs(t *testing.T) {
	l := DefaultLimits()
	out := l.Apply(map[string]float64{"A": 1000, "B": 0}, 100_000)
	assert.Contains(t, out, "A")
	assert.NotContains(t, out, "B")
}
