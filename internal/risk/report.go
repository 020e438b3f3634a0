package risk

import (
	"fmt"
	"time"
)

// Report is the daily risk line written to the results store and the
// ops endpoint.
type Report struct {
	Date          time.Time `json:"date"`
	Drawdown      float64   `json:"drawdown"`
	VaR           float64   `json:"var"`
	Level         Level     `json:"level"`
	PositionRatio float64   `json:"position_ratio"`
	Halted        bool      `json:"halted"`
	Message       string    `json:"message"`
}

// BuildReport summarizes an assessment for a given date.
func BuildReport(date time.Time, a Assessment) Report {
	r := Report{
		Date:          date,
		Drawdown:      a.Drawdown,
		VaR:           a.VaR,
		Level:         a.Level,
		PositionRatio: a.Level.PositionRatio(),
		Halted:        a.Halted,
	}
	switch {
	case a.Halted:
		r.Message = "trading halted by circuit breaker"
	case a.Level == LevelHigh:
		r.Message = fmt.Sprintf("drawdown %.1f%% past warning threshold, exposure reduced", a.Drawdown*100)
	case len(a.Findings) > 0:
		r.Message = a.Findings[0]
	default:
		r.Message = "within limits"
	}
	return r
}
