package order

import (
	"time"
)

// Rules models exchange trading restrictions that veto a fill before
// the broker state machine runs: daily price-limit bands, T+1
// settlement, and explicit slippage/commission percentages for
// reporting. An order blocked here "could not trade today"; it is
// marked unfilled, which is distinct from a broker rejection.
type Rules struct {
	SlippagePct   float64 `yaml:"slippage_pct"`
	CommissionPct float64 `yaml:"commission_pct"`
	LimitUpPct    float64 `yaml:"limit_up_pct"`
	LimitDownPct  float64 `yaml:"limit_down_pct"`
	TPlusOne      bool    `yaml:"t_plus_one"`

	lastBuyDate map[string]string
}

// DefaultRules mirrors mainland-equity conventions: 0.1% slippage,
// 0.03% commission, +/-10% daily bands, T+1 settlement.
func DefaultRules() *Rules {
	return &Rules{
		SlippagePct:   0.001,
		CommissionPct: 0.0003,
		LimitUpPct:    0.10,
		LimitDownPct:  -0.10,
		TPlusOne:      true,
	}
}

// ApplySlippage adjusts price against the trader: up for buys, down
// for sells.
func (r *Rules) ApplySlippage(price float64, side Side) float64 {
	if side == Buy {
		return price * (1 + r.SlippagePct)
	}
	return price * (1 - r.SlippagePct)
}

// Commission returns the fee on a filled notional value.
func (r *Rules) Commission(value float64) float64 {
	return value * r.CommissionPct
}

// CanTrade reports whether price sits inside the daily band relative
// to the previous close. A buy at or beyond limit-up cannot fill, nor
// can a sell at or beyond limit-down. Without a previous close the
// band is not enforced.
func (r *Rules) CanTrade(price, prevClose float64, side Side) bool {
	if prevClose <= 0 {
		return true
	}
	pct := (price - prevClose) / prevClose
	if side == Buy {
		return pct < r.LimitUpPct
	}
	return pct > r.LimitDownPct
}

// RecordBuy notes a buy date so T+1 can block same-day sells.
func (r *Rules) RecordBuy(symbol string, date time.Time) {
	if !r.TPlusOne {
		return
	}
	if r.lastBuyDate == nil {
		r.lastBuyDate = make(map[string]string)
	}
	r.lastBuyDate[symbol] = date.Format("2006-01-02")
}

// CanSell reports whether T+1 permits selling symbol on date.
func (r *Rules) CanSell(symbol string, date time.Time) bool {
	if !r.TPlusOne || r.lastBuyDate == nil {
		return true
	}
	return r.lastBuyDate[symbol] != date.Format("2006-01-02")
}

// Target is a value-denominated order emitted by the orchestration
// engine for the execution layer.
type Target struct {
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`
	Side   Side    `json:"side"`
}

// FillReport is the rule filter's verdict for one target order.
type FillReport struct {
	Target
	FillPrice  float64 `json:"fill_price"`
	Commission float64 `json:"commission"`
	Filled     bool    `json:"filled"`
}

// FillOrders vets each target against price availability and the
// limit band, then prices the survivors with slippage and commission.
// Orders it cannot fill stay in the output marked unfilled so callers
// can distinguish "could not trade today" from a broker rejection.
func (r *Rules) FillOrders(targets []Target, prices, prevCloses map[string]float64) []FillReport {
	out := make([]FillReport, 0, len(targets))
	for _, t := range targets {
		price := prices[t.Symbol]
		if price <= 0 || t.Value <= 0 {
			out = append(out, FillReport{Target: t})
			continue
		}
		prev, ok := prevCloses[t.Symbol]
		if !ok {
			prev = price
		}
		if !r.CanTrade(price, prev, t.Side) {
			out = append(out, FillReport{Target: t, FillPrice: price})
			continue
		}
		out = append(out, FillReport{
			Target:     t,
			FillPrice:  r.ApplySlippage(price, t.Side),
			Commission: r.Commission(t.Value),
			Filled:     true,
		})
	}
	return out
}
