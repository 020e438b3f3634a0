package risk

// Drawdown returns the current drawdown of the equity curve: the
// fractional decline of the last point from the running peak. A flat
// or rising curve reports zero.
func Drawdown(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0]
	for _, v := range curve {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return 0
	}
	dd := (peak - curve[len(curve)-1]) / peak
	if dd < 0 {
		return 0
	}
	return dd
}

// MaxDrawdown returns the deepest peak-to-trough decline anywhere in
// the curve.
func MaxDrawdown(curve []float64) float64 {
	peak, worst := 0.0, 0.0
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// DrawdownRule scales gross exposure down as drawdown deepens.
type DrawdownRule struct {
	WarnAt float64 `yaml:"warn_at"` // scale to WarnScale at or past this
	StopAt float64 `yaml:"stop_at"` // flatten at or past this
	// Scale applied between WarnAt and StopAt.
	WarnScale float64 `yaml:"warn_scale"`
}

// DefaultDrawdownRule warns at 10% drawdown and flattens at 15%.
func DefaultDrawdownRule() DrawdownRule {
	return DrawdownRule{WarnAt: 0.10, StopAt: 0.15, WarnScale: 0.7}
}

// Scale returns the exposure multiplier for the given drawdown: 1.0
// while healthy, WarnScale once WarnAt is breached, zero at StopAt.
func (r DrawdownRule) Scale(drawdown float64) float64 {
	switch {
	case drawdown >= r.StopAt:
		return 0
	case drawdown >= r.WarnAt:
		return r.WarnScale
	}
	return 1.0
}

// LevelFor grades the drawdown into a discrete risk level.
func (r DrawdownRule) LevelFor(drawdown float64) Level {
	switch {
	case drawdown >= r.StopAt:
		return LevelStop
	case drawdown >= r.WarnAt:
		return LevelHigh
	case drawdown < r.WarnAt/2:
		return LevelLow
	}
	return LevelNormal
}
