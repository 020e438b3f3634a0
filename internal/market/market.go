// Package market supplies price data to the engine: a CSV-backed
// provider for backtests, a cache layer and a guarded wrapper that
// shields live providers behind a circuit breaker and rate limiter.
package market

import (
	"context"
	"errors"
	"time"
)

// ErrNoData is returned when a provider has no bar for the request.
var ErrNoData = errors.New("market: no data for symbol")

// Bar is one day of OHLCV data.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Provider serves bars for symbols. Implementations must be safe for
// concurrent use.
type Provider interface {
	// Price returns the bar for the symbol on the given date.
	Price(ctx context.Context, symbol string, date time.Time) (Bar, error)
	// History returns bars in [from, to], ascending by date.
	History(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
}

// Snapshot is the per-cycle view handed to strategies: closing prices
// for the day plus enough trailing history to compute indicators.
type Snapshot struct {
	Date    time.Time
	Prices  map[string]float64
	History map[string][]Bar
}

// Closes extracts the close series from a bar history.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Returns converts a close series into daily fractional returns.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

// BuildSnapshot assembles a strategy snapshot from a provider for the
// given symbols, with lookback days of trailing history.
func BuildSnapshot(ctx context.Context, p Provider, symbols []string, date time.Time, lookback int) (Snapshot, error) {
	snap := Snapshot{
		Date:    date,
		Prices:  make(map[string]float64, len(symbols)),
		History: make(map[string][]Bar, len(symbols)),
	}
	from := date.AddDate(0, 0, -lookback)
	for _, sym := range symbols {
		bars, err := p.History(ctx, sym, from, date)
		if err != nil {
			if errors.Is(err, ErrNoData) {
				continue
			}
			return Snapshot{}, err
		}
		if len(bars) == 0 {
			continue
		}
		snap.History[sym] = bars
		snap.Prices[sym] = bars[len(bars)-1].Close
	}
	return snap, nil
}
