package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/marketforge/portengine/internal/alloc"
	"github.com/marketforge/portengine/internal/config"
	"github.com/marketforge/portengine/internal/engine"
	"github.com/marketforge/portengine/internal/ledger"
	"github.com/marketforge/portengine/internal/market"
	"github.com/marketforge/portengine/internal/metrics"
	"github.com/marketforge/portengine/internal/order"
	"github.com/marketforge/portengine/internal/persistence"
	"github.com/marketforge/portengine/internal/persistence/postgres"
	"github.com/marketforge/portengine/internal/risk"
	"github.com/marketforge/portengine/internal/signal"
	"github.com/marketforge/portengine/internal/strategy"
)

// app is the assembled process: the engine plus everything the
// commands need to report on it.
type app struct {
	cfg     config.Config
	engine  *engine.Engine
	ledger  *ledger.Ledger
	riskEng *risk.Engine
	metrics *metrics.Metrics
	cleanup []func()
}

func loadConfig() (config.Config, error) {
	if rootFlags.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(rootFlags.configPath)
}

// buildApp wires the full dependency graph from config.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	if cfg.Run.ID == "" || cfg.Run.ID == "default" {
		cfg.Run.ID = uuid.NewString()[:8]
	}
	a := &app{cfg: cfg, metrics: metrics.New()}

	a.ledger = ledger.New(cfg.Run.InitialCash)
	a.riskEng = risk.NewEngine(cfg.Risk)

	provider, err := buildProvider(cfg.Market)
	if err != nil {
		return nil, err
	}

	store, err := a.buildStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	a.engine = engine.New(engine.Options{
		RunID:      cfg.Run.ID,
		Strategies: buildStrategies(cfg.Strategies),
		Aggregator: signal.NewAggregator(cfg.Signals),
		Allocation: alloc.Options{
			Method:        cfg.Allocation.Method,
			TargetVol:     cfg.Allocation.TargetVol,
			KellyFraction: cfg.Allocation.KellyFraction,
			TargetReturn:  cfg.Allocation.TargetReturn,
		},
		Limits:   cfg.Limits,
		Rules:    cfg.Trading,
		Risk:     a.riskEng,
		Ledger:   a.ledger,
		Broker:   order.NewSimBroker(a.ledger, cfg.Trading.SlippagePct, cfg.Trading.CommissionPct),
		Provider: provider,
		Store:    store,
		Metrics:  a.metrics,
		Lookback: cfg.Run.Lookback,
	})
	return a, nil
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

func buildProvider(cfg config.MarketConfig) (market.Provider, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("market.data_dir is required")
	}
	// Guard sits inside the cache so a tripped breaker still serves
	// cached history.
	var p market.Provider = market.NewCSVProvider(cfg.DataDir)
	p = market.NewGuardedProvider(p, cfg.Guard)

	cache := market.NewMemoryCache()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cache = market.NewRedisCache(client)
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis price cache")
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return market.NewCachedProvider(p, cache, ttl), nil
}

func (a *app) buildStore(ctx context.Context, cfg config.StoreConfig) (*persistence.Store, error) {
	if cfg.Backend != "postgres" {
		store := persistence.NewMemoryStore().AsStore()
		return &store, nil
	}
	db, err := postgres.Connect(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	a.cleanup = append(a.cleanup, func() { db.Close() })
	if err := postgres.Migrate(ctx, db); err != nil {
		return nil, err
	}
	store := postgres.NewStore(db, cfg.Postgres.Timeout)
	return &store, nil
}

func buildStrategies(cfg config.StrategiesConfig) []strategy.Strategy {
	var out []strategy.Strategy
	for _, name := range cfg.Enabled {
		switch name {
		case "sma_momentum":
			out = append(out, strategy.NewMomentum(cfg.Momentum.Fast, cfg.Momentum.Slow))
		case "zscore_meanrev":
			out = append(out, strategy.NewMeanReversion(cfg.MeanReversion.Lookback, cfg.MeanReversion.Entry))
		}
	}
	return out
}
