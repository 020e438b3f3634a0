package risk

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Trip reasons recorded when the breaker opens.
const (
	TripDailyLoss       = "daily_loss_limit"
	TripMaxDrawdown     = "max_drawdown"
	TripConsecutiveLoss = "consecutive_loss_days"
	TripManual          = "manual"
)

// BreakerConfig bounds the losses the breaker tolerates before it
// halts all trading.
type BreakerConfig struct {
	MaxDailyLossPct    float64       `yaml:"max_daily_loss_pct"`
	MaxDrawdown        float64       `yaml:"max_drawdown"`
	MaxConsecutiveLoss int           `yaml:"max_consecutive_loss_days"`
	Cooldown           time.Duration `yaml:"cooldown"`
}

// DefaultBreakerConfig trips at a 5% daily loss, 15% drawdown or three
// losing days in a row, with a 24h cooldown before trading resumes.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxDailyLossPct:    0.05,
		MaxDrawdown:        0.15,
		MaxConsecutiveLoss: 3,
		Cooldown:           24 * time.Hour,
	}
}

// Breaker is the trading halt switch. Once tripped it stays open until
// the cooldown elapses; a zero cooldown requires a manual Reset.
type Breaker struct {
	mu      sync.Mutex
	cfg     BreakerConfig
	now     func() time.Time
	tripped bool
	reason  string
	since   time.Time
	lossRun int
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{cfg: cfg, now: time.Now}
}

// Tripped reports whether trading is currently halted. An elapsed
// cooldown closes the breaker on the way through.
func (b *Breaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeReset()
	return b.tripped
}

// Reason returns the cause of the current halt, empty when closed.
func (b *Breaker) Reason() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeReset()
	return b.reason
}

// CheckDaily trips on a single-day loss past the limit. dailyReturn is
// the fractional day-over-day equity change.
func (b *Breaker) CheckDaily(dailyReturn float64) bool {
	if b.cfg.MaxDailyLossPct > 0 && dailyReturn <= -b.cfg.MaxDailyLossPct {
		b.trip(TripDailyLoss)
		return true
	}
	return false
}

// CheckDrawdown trips when the portfolio drawdown exceeds the limit.
func (b *Breaker) CheckDrawdown(drawdown float64) bool {
	if b.cfg.MaxDrawdown > 0 && drawdown >= b.cfg.MaxDrawdown {
		b.trip(TripMaxDrawdown)
		return true
	}
	return false
}

// RecordDay feeds the day's return into the consecutive-loss counter
// and trips once the run reaches the limit. Flat days break the run.
func (b *Breaker) RecordDay(dailyReturn float64) bool {
	b.mu.Lock()
	if dailyReturn < 0 {
		b.lossRun++
	} else {
		b.lossRun = 0
	}
	run := b.lossRun
	b.mu.Unlock()

	if b.cfg.MaxConsecutiveLoss > 0 && run >= b.cfg.MaxConsecutiveLoss {
		b.trip(TripConsecutiveLoss)
		return true
	}
	return false
}

// Trip opens the breaker by hand.
func (b *Breaker) Trip() { b.trip(TripManual) }

// Reset closes the breaker and clears the loss run.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

func (b *Breaker) trip(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tripped {
		return
	}
	b.tripped = true
	b.reason = reason
	b.since = b.now()
	log.Warn().Str("reason", reason).Msg("circuit breaker tripped, trading halted")
}

// maybeReset closes the breaker after the cooldown. Callers hold mu.
func (b *Breaker) maybeReset() {
	if !b.tripped || b.cfg.Cooldown <= 0 {
		return
	}
	if b.now().Sub(b.since) >= b.cfg.Cooldown {
		log.Info().Str("reason", b.reason).Msg("circuit breaker cooldown elapsed, trading resumed")
		b.reset()
	}
}

func (b *Breaker) reset() {
	b.tripped = false
	b.reason = ""
	b.lossRun = 0
}
