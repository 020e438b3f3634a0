package risk

// Sizer converts a per-trade risk budget into position notionals.
type Sizer struct {
	RiskPerTrade float64 `yaml:"risk_per_trade"` // fraction of equity risked per trade
	StopLossPct  float64 `yaml:"stop_loss_pct"`  // default stop distance
	ATRMult      float64 `yaml:"atr_mult"`       // stop distance in ATRs
}

// DefaultSizer risks 2% of equity per trade against an 8% stop, with
// stops placed two ATRs away when volatility sizing is used.
func DefaultSizer() Sizer {
	return Sizer{RiskPerTrade: 0.02, StopLossPct: 0.08, ATRMult: 2.0}
}

// Notional returns the position value such that hitting the default
// stop loses exactly the risk budget.
func (s Sizer) Notional(equity float64) float64 {
	if equity <= 0 || s.RiskPerTrade <= 0 || s.StopLossPct <= 0 {
		return 0
	}
	return equity * s.RiskPerTrade / s.StopLossPct
}

// NotionalATR sizes against a volatility stop: the stop distance is
// ATRMult average true ranges, expressed as a fraction of price.
func (s Sizer) NotionalATR(equity, price, atr float64) float64 {
	if equity <= 0 || price <= 0 || atr <= 0 || s.RiskPerTrade <= 0 || s.ATRMult <= 0 {
		return 0
	}
	stopFrac := s.ATRMult * atr / price
	if stopFrac <= 0 {
		return 0
	}
	return equity * s.RiskPerTrade / stopFrac
}

// StopPrice returns the stop-loss trigger for a long entry.
func (s Sizer) StopPrice(entry float64) float64 {
	return entry * (1 - s.StopLossPct)
}

// StopHit reports whether a long position's loss has reached the stop.
func (s Sizer) StopHit(profitRatio float64) bool {
	return s.StopLossPct > 0 && profitRatio <= -s.StopLossPct
}
