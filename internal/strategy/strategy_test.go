package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketforge/portengine/internal/market"
	"github.com/marketforge/portengine/internal/signal"
)

func barsFromCloses(closes []float64) []market.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{Date: start.AddDate(0, 0, i), Close: c}
	}
	return bars
}

func snapshotOf(series map[string][]float64) market.Snapshot {
	snap := market.Snapshot{
		Prices:  map[string]float64{},
		History: map[string][]market.Bar{},
	}
	for sym, closes := range series {
		snap.History[sym] = barsFromCloses(closes)
		snap.Prices[sym] = closes[len(closes)-1]
	}
	return snap
}

func TestMomentum_UptrendBuys(t *testing.T) {
	s := NewMomentum(2, 4)
	snap := snapshotOf(map[string][]float64{
		"UP": {10, 11, 12, 13, 14, 15},
	})

	sigs := s.Signals(snap)
	require.Len(t, sigs, 1)
	assert.Equal(t, signal.Buy, sigs[0].Direction)
	assert.Greater(t, sigs[0].Confidence, 0.0)
}

func TestMomentum_DowntrendSells(t *testing.T) {
	s := NewMomentum(2, 4)
	snap := snapshotOf(map[string][]float64{
		"DN": {15, 14, 13, 12, 11, 10},
	})

	sigs := s.Signals(snap)
	require.Len(t, sigs, 1)
	assert.Equal(t, signal.Sell, sigs[0].Direction)
}

func TestMomentum_SkipsShortHistory(t *testing.T) {
	s := NewMomentum(2, 10)
	snap := snapshotOf(map[string][]float64{"X": {10, 11}})
	assert.Empty(t, s.Signals(snap))
}

func TestMomentum_DeterministicOrder(t *testing.T) {
	s := NewMomentum(2, 4)
	snap := snapshotOf(map[string][]float64{
		"ZZZ": {10, 11, 12, 13, 14},
		"AAA": {10, 11, 12, 13, 14},
	})
	sigs := s.Signals(snap)
	require.Len(t, sigs, 2)
	assert.Equal(t, "AAA", sigs[0].Symbol)
	assert.Equal(t, "ZZZ", sigs[1].Symbol)
}

func TestMeanReversion_BuysTheDip(t *testing.T) {
	s := NewMeanReversion(5, 1.0)
	snap := snapshotOf(map[string][]float64{
		"DIP": {100, 100, 100, 100, 90},
	})

	sigs := s.Signals(snap)
	require.Len(t, sigs, 1)
	assert.Equal(t, signal.Buy, sigs[0].Direction)
}

func TestMeanReversion_SellsTheSpike(t *testing.T) {
	s := NewMeanReversion(5, 1.0)
	snap := snapshotOf(map[string][]float64{
		"POP": {100, 100, 100, 100, 110},
	})

	sigs := s.Signals(snap)
	require.Len(t, sigs, 1)
	assert.Equal(t, signal.Sell, sigs[0].Direction)
}

func TestMeanReversion_FlatSeriesSkipped(t *testing.T) {
	s := NewMeanReversion(5, 1.0)
	snap := snapshotOf(map[string][]float64{
		"FLAT": {100, 100, 100, 100, 100},
	})
	assert.Empty(t, s.Signals(snap))
}
