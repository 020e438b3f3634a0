package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTrade_LimitBands(t *testing.T) {
	r := DefaultRules()

	// +10% from prev close: a buy cannot chase limit-up.
	assert.False(t, r.CanTrade(110, 100, Buy))
	assert.True(t, r.CanTrade(109, 100, Buy))

	// -10%: a sell cannot hit limit-down.
	assert.False(t, r.CanTrade(90, 100, Sell))
	assert.True(t, r.CanTrade(91, 100, Sell))

	// No previous close disables the band.
	assert.True(t, r.CanTrade(110, 0, Buy))
}

func TestTPlusOne(t *testing.T) {
	r := DefaultRules()
	d1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	r.RecordBuy("600519", d1)
	assert.False(t, r.CanSell("600519", d1))
	assert.True(t, r.CanSell("600519", d2))
	assert.True(t, r.CanSell("000001", d1))

	r.TPlusOne = false
	assert.True(t, r.CanSell("600519", d1))
}

func TestFillOrders(t *testing.T) {
	r := DefaultRules()
	targets := []Target{
		{Symbol: "A", Value: 10000, Side: Buy},
		{Symbol: "B", Value: 5000, Side: Buy},  // at limit-up, cannot trade today
		{Symbol: "C", Value: 2000, Side: Sell}, // no price at all
	}
	prices := map[string]float64{"A": 50, "B": 110}
	prev := map[string]float64{"A": 49, "B": 100}

	out := r.FillOrders(targets, prices, prev)
	assert.Len(t, out, 3)

	assert.True(t, out[0].Filled)
	assert.InDelta(t, 50*1.001, out[0].FillPrice, 1e-9)
	assert.InDelta(t, 10000*0.0003, out[0].Commission, 1e-9)

	// Unfilled, not rejected: the order simply could not trade today.
	assert.False(t, out[1].Filled)
	assert.Equal(t, 110.0, out[1].FillPrice)
	assert.Zero(t, out[1].Commission)

	assert.False(t, out[2].Filled)
	assert.Zero(t, out[2].FillPrice)
}
