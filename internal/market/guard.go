package market

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// GuardConfig tunes the provider guard.
type GuardConfig struct {
	// Requests per second allowed through to the provider.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
	// Consecutive failures before the breaker opens.
	MaxFailures uint32        `yaml:"max_failures"`
	OpenFor     time.Duration `yaml:"open_for"`
}

func DefaultGuardConfig() GuardConfig {
	return GuardConfig{RateLimit: 10, Burst: 5, MaxFailures: 5, OpenFor: 30 * time.Second}
}

// GuardedProvider wraps a live provider behind a circuit breaker and
// token-bucket rate limiter so a flapping upstream cannot stall a
// trading cycle or burn through request quotas.
type GuardedProvider struct {
	next    Provider
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewGuardedProvider(next Provider, cfg GuardConfig) *GuardedProvider {
	settings := gobreaker.Settings{
		Name:    "market-provider",
		Timeout: cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("provider breaker state change")
		},
		// Missing data is a valid answer, not an upstream outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData)
		},
	}
	return &GuardedProvider{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
	}
}

// State exposes the breaker state for the ops endpoint.
func (p *GuardedProvider) State() gobreaker.State { return p.breaker.State() }

func (p *GuardedProvider) Price(ctx context.Context, symbol string, date time.Time) (Bar, error) {
	v, err := p.execute(ctx, func() (interface{}, error) {
		return p.next.Price(ctx, symbol, date)
	})
	if err != nil {
		return Bar{}, err
	}
	return v.(Bar), nil
}

func (p *GuardedProvider) History(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	v, err := p.execute(ctx, func() (interface{}, error) {
		return p.next.History(ctx, symbol, from, to)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Bar), nil
}

func (p *GuardedProvider) execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.breaker.Execute(fn)
}
