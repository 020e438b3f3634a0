// Package risk houses the pre-trade overlays: drawdown scaling, the
// trading halt breaker, value-at-risk estimates and concentration
// audits. Overlays observe and scale; they never pick positions.
package risk

// Level grades current portfolio stress.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelNormal Level = "NORMAL"
	LevelHigh   Level = "HIGH"
	LevelStop   Level = "STOP"
)

// PositionRatio maps a risk level to the fraction of normal position
// size allowed at that level.
func (l Level) PositionRatio() float64 {
	switch l {
	case LevelLow:
		return 1.0
	case LevelNormal:
		return 0.8
	case LevelHigh:
		return 0.5
	case LevelStop:
		return 0.0
	}
	return 0.8
}
