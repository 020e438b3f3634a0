package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_DailyLoss(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig())
	assert.False(t, b.CheckDaily(-0.04))
	assert.False(t, b.Tripped())

	assert.True(t, b.CheckDaily(-0.05))
	assert.True(t, b.Tripped())
	assert.Equal(t, TripDailyLoss, b.Reason())
}

func TestBreaker_Drawdown(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig())
	assert.False(t, b.CheckDrawdown(0.14))
	assert.True(t, b.CheckDrawdown(0.15))
	assert.Equal(t, TripMaxDrawdown, b.Reason())
}

func TestBreaker_ConsecutiveLossDays(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig())
	assert.False(t, b.RecordDay(-0.01))
	assert.False(t, b.RecordDay(-0.01))
	// A flat-or-up day resets the run.
	assert.False(t, b.RecordDay(0.0))
	assert.False(t, b.RecordDay(-0.01))
	assert.False(t, b.RecordDay(-0.01))
	assert.True(t, b.RecordDay(-0.01))
	assert.Equal(t, TripConsecutiveLoss, b.Reason())
}

func TestBreaker_CooldownAutoReset(t *testing.T) {
	cfg := DefaultBreakerConfig()
	cfg.Cooldown = time.Hour

	b := NewBreaker(cfg)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.Trip()
	assert.True(t, b.Tripped())

	now = now.Add(59 * time.Minute)
	assert.True(t, b.Tripped())

	now = now.Add(2 * time.Minute)
	assert.False(t, b.Tripped())
	assert.Empty(t, b.Reason())
}

func TestBreaker_ZeroCooldownRequiresManualReset(t *testing.T) {
	cfg := DefaultBreakerConfig()
	cfg.Cooldown = 0

	b := NewBreaker(cfg)
	b.Trip()
	assert.True(t, b.Tripped())

	b.Reset()
	assert.False(t, b.Tripped())
}

func TestBreaker_TripIsSticky(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxDailyLossPct: 0.05, MaxDrawdown: 0.15})
	b.CheckDaily(-0.08)
	// A later, different breach does not overwrite the first reason.
	b.CheckDrawdown(0.20)
	assert.Equal(t, TripDailyLoss, b.Reason())
}
