// Package ledger tracks cash, positions and the equity curve for a
// single simulated account. It is the only mutable shared state within
// an account: every fill is applied atomically so that no partial
// debit/position update is ever visible.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Position is one held symbol with volume-weighted average cost.
type Position struct {
	Symbol    string  `json:"symbol"`
	Qty       float64 `json:"qty"`
	AvgCost   float64 `json:"avg_cost"`
	LastPrice float64 `json:"last_price"`
}

// MarketValue returns qty at the last marked price, falling back to
// average cost when the symbol has never been marked.
func (p Position) MarketValue() float64 {
	price := p.LastPrice
	if price <= 0 {
		price = p.AvgCost
	}
	return p.Qty * price
}

// ProfitRatio returns the unrealized return against cost.
func (p Position) ProfitRatio() float64 {
	cost := p.Qty * p.AvgCost
	if cost == 0 {
		return 0
	}
	return (p.MarketValue() - cost) / cost
}

// EquityPoint is one recorded point of the account equity curve.
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Snapshot is a read-only view of the ledger at a point in time.
type Snapshot struct {
	Cash          float64             `json:"cash"`
	Positions     map[string]Position `json:"positions"`
	PositionValue float64             `json:"position_value"`
	TotalEquity   float64             `json:"total_equity"`
}

// Ledger is the account book. Cash never goes negative: a buy that
// would overdraw is refused before any state changes.
type Ledger struct {
	mu          sync.Mutex
	initialCash float64
	cash        float64
	positions   map[string]*Position
	curve       []EquityPoint
	peak        float64
}

// New creates a ledger funded with initialCash.
func New(initialCash float64) *Ledger {
	return &Ledger{
		initialCash: initialCash,
		cash:        initialCash,
		positions:   make(map[string]*Position),
		peak:        initialCash,
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// InitialCash returns the funding amount.
func (l *Ledger) InitialCash() float64 { return l.initialCash }

// Position returns the held position for symbol and whether it exists.
func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// HeldQty returns the held quantity for symbol, zero when flat.
func (l *Ledger) HeldQty(symbol string) float64 {
	p, ok := l.Position(symbol)
	if !ok {
		return 0
	}
	return p.Qty
}

// ApplyBuy debits cash for qty*fillPrice+commission and folds the lot
// into the position at volume-weighted average cost. The admission
// check and the mutation happen under one lock so the cash >= 0
// invariant can never be observed broken.
func (l *Ledger) ApplyBuy(symbol string, qty, fillPrice, commission float64) error {
	if qty <= 0 || fillPrice <= 0 {
		return fmt.Errorf("invalid buy %s qty=%f price=%f", symbol, qty, fillPrice)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cost := qty*fillPrice + commission
	if l.cash < cost {
		return fmt.Errorf("insufficient cash: need %.2f have %.2f", cost, l.cash)
	}
	l.cash -= cost

	pos, ok := l.positions[symbol]
	if !ok {
		l.positions[symbol] = &Position{Symbol: symbol, Qty: qty, AvgCost: fillPrice, LastPrice: fillPrice}
		return nil
	}
	newQty := pos.Qty + qty
	pos.AvgCost = (pos.Qty*pos.AvgCost + qty*fillPrice) / newQty
	pos.Qty = newQty
	pos.LastPrice = fillPrice
	return nil
}

// ApplySell credits cash for qty*fillPrice-commission. Selling more
// than held is refused; a position drained to zero is removed.
func (l *Ledger) ApplySell(symbol string, qty, fillPrice, commission float64) error {
	if qty <= 0 || fillPrice <= 0 {
		return fmt.Errorf("invalid sell %s qty=%f price=%f", symbol, qty, fillPrice)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[symbol]
	if !ok || pos.Qty < qty {
		held := 0.0
		if ok {
			held = pos.Qty
		}
		return fmt.Errorf("insufficient holdings: want %f held %f", qty, held)
	}
	l.cash += qty*fillPrice - commission
	pos.Qty -= qty
	pos.LastPrice = fillPrice
	if pos.Qty <= 0 {
		delete(l.positions, symbol)
	}
	return nil
}

// MarkPrice updates the last traded price used for market value.
// Unknown symbols are ignored.
func (l *Ledger) MarkPrice(symbol string, price float64) {
	if price <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if pos, ok := l.positions[symbol]; ok {
		pos.LastPrice = price
	}
}

// Snapshot returns a consistent copy of cash, positions and equity.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() Snapshot {
	positions := make(map[string]Position, len(l.positions))
	posValue := 0.0
	for sym, p := range l.positions {
		positions[sym] = *p
		posValue += p.MarketValue()
	}
	return Snapshot{
		Cash:          l.cash,
		Positions:     positions,
		PositionValue: posValue,
		TotalEquity:   l.cash + posValue,
	}
}

// TotalEquity returns cash plus the market value of all positions.
func (l *Ledger) TotalEquity() float64 {
	return l.Snapshot().TotalEquity
}

// Symbols returns held symbols in sorted order, for deterministic
// iteration by callers.
func (l *Ledger) Symbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.positions))
	for sym := range l.positions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// RecordEquity appends the current total equity to the curve.
func (l *Ledger) RecordEquity(date time.Time) EquityPoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := l.snapshotLocked()
	pt := EquityPoint{Date: date, Value: snap.TotalEquity}
	l.curve = append(l.curve, pt)
	if snap.TotalEquity > l.peak {
		l.peak = snap.TotalEquity
	}
	return pt
}

// EquityCurve returns a copy of the recorded curve.
func (l *Ledger) EquityCurve() []EquityPoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EquityPoint, len(l.curve))
	copy(out, l.curve)
	return out
}

// EquityValues returns just the recorded equity values, oldest first.
func (l *Ledger) EquityValues() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]float64, len(l.curve))
	for i, pt := range l.curve {
		out[i] = pt.Value
	}
	return out
}

// Return is the fractional return against initial cash.
func (l *Ledger) Return() float64 {
	if l.initialCash == 0 {
		return 0
	}
	return (l.TotalEquity() - l.initialCash) / l.initialCash
}

// MaxDrawdown walks the recorded curve and returns the deepest
// peak-to-trough decline as a fraction of the peak.
func (l *Ledger) MaxDrawdown() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	maxDD := 0.0
	peak := 0.0
	for _, pt := range l.curve {
		if pt.Value > peak {
			peak = pt.Value
		}
		if peak > 0 {
			if dd := (peak - pt.Value) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
