package risk

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Config aggregates every overlay's knobs.
type Config struct {
	Drawdown      DrawdownRule        `yaml:"drawdown"`
	Breaker       BreakerConfig       `yaml:"breaker"`
	Concentration ConcentrationLimits `yaml:"concentration"`
	Sizer         Sizer               `yaml:"sizing"`
	VaRConfidence float64             `yaml:"var_confidence"`
	VaRLimit      float64             `yaml:"var_limit"` // 0 disables the check
}

func DefaultConfig() Config {
	return Config{
		Drawdown:      DefaultDrawdownRule(),
		Breaker:       DefaultBreakerConfig(),
		Concentration: DefaultConcentrationLimits(),
		Sizer:         DefaultSizer(),
		VaRConfidence: 0.95,
		VaRLimit:      0,
	}
}

// Assessment is the engine's verdict for one trading cycle.
type Assessment struct {
	Drawdown float64
	VaR      float64
	Level    Level
	Scale    float64 // exposure multiplier, 0 when halted
	Halted   bool
	Findings []string // audit notes, never blocking on their own
}

// Engine runs every overlay against the current portfolio state and
// folds the results into a single exposure scale.
type Engine struct {
	cfg     Config
	breaker *Breaker
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, breaker: NewBreaker(cfg.Breaker)}
}

// Breaker exposes the halt switch for manual control and reporting.
func (e *Engine) Breaker() *Breaker { return e.breaker }

// Sizer exposes the position-sizing rules, including the stop-loss
// threshold.
func (e *Engine) Sizer() Sizer { return e.cfg.Sizer }

// Evaluate scores the equity curve and open positions. The returned
// scale already folds in drawdown scaling and any halt; callers apply
// it to their target exposure.
func (e *Engine) Evaluate(curve []float64, positions map[string]float64, totalEquity float64) Assessment {
	dd := Drawdown(curve)
	a := Assessment{
		Drawdown: dd,
		Level:    e.cfg.Drawdown.LevelFor(dd),
		Scale:    e.cfg.Drawdown.Scale(dd),
	}

	returns := dailyReturns(curve)
	if len(returns) > 0 {
		a.VaR = VaRHistorical(returns, e.cfg.VaRConfidence)
		if today := returns[len(returns)-1]; CheckVaRBreach(today, e.cfg.VaRLimit) {
			a.Findings = append(a.Findings,
				fmt.Sprintf("daily loss %.2f%% breaches %.2f%% VaR limit", -today*100, e.cfg.VaRLimit*100))
		}
	}

	if ok, reason := e.cfg.Concentration.Check(positions, totalEquity); !ok {
		a.Findings = append(a.Findings, reason)
	}

	e.breaker.CheckDrawdown(dd)
	if n := len(returns); n > 0 {
		e.breaker.CheckDaily(returns[n-1])
	}
	if e.breaker.Tripped() {
		a.Halted = true
		a.Scale = 0
		a.Level = LevelStop
	}

	for _, f := range a.Findings {
		log.Warn().Str("finding", f).Msg("risk audit finding")
	}
	return a
}

// CloseDay records the day's return for the consecutive-loss rule.
func (e *Engine) CloseDay(curve []float64) {
	returns := dailyReturns(curve)
	if n := len(returns); n > 0 {
		e.breaker.RecordDay(returns[n-1])
	}
}

func dailyReturns(curve []float64) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, curve[i]/curve[i-1]-1)
	}
	return out
}
