// Package config loads the engine configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marketforge/portengine/internal/alloc"
	"github.com/marketforge/portengine/internal/constraint"
	"github.com/marketforge/portengine/internal/market"
	"github.com/marketforge/portengine/internal/order"
	"github.com/marketforge/portengine/internal/persistence/postgres"
	"github.com/marketforge/portengine/internal/risk"
	"github.com/marketforge/portengine/internal/signal"
)

// Config is the full engine configuration surface.
type Config struct {
	// Run identifies and scopes a backtest or live session.
	Run RunConfig `yaml:"run"`

	Strategies StrategiesConfig        `yaml:"strategies"`
	Signals    signal.AggregatorConfig `yaml:"signals"`
	Allocation AllocationConfig        `yaml:"allocation"`
	Limits     constraint.Limits       `yaml:"limits"`
	Risk       risk.Config             `yaml:"risk"`
	Trading    *order.Rules            `yaml:"trading"`
	Market     MarketConfig            `yaml:"market"`
	Store      StoreConfig             `yaml:"store"`
	Ops        OpsConfig               `yaml:"ops"`
	Log        LogConfig               `yaml:"log"`
}

type RunConfig struct {
	ID          string   `yaml:"id"`
	InitialCash float64  `yaml:"initial_cash"`
	Symbols     []string `yaml:"symbols"`
	Start       string   `yaml:"start"` // 2006-01-02
	End         string   `yaml:"end"`
	Lookback    int      `yaml:"lookback_days"`
}

type StrategiesConfig struct {
	// Enabled lists strategies to run: sma_momentum, zscore_meanrev.
	Enabled  []string `yaml:"enabled"`
	Momentum struct {
		Fast int `yaml:"fast"`
		Slow int `yaml:"slow"`
	} `yaml:"momentum"`
	MeanReversion struct {
		Lookback int     `yaml:"lookback"`
		Entry    float64 `yaml:"entry"`
	} `yaml:"mean_reversion"`
}

type AllocationConfig struct {
	Method        alloc.Method `yaml:"method"`
	TargetVol     float64      `yaml:"target_vol"`
	KellyFraction float64      `yaml:"kelly_fraction"`
	TargetReturn  *float64     `yaml:"target_return"`
}

type MarketConfig struct {
	DataDir   string             `yaml:"data_dir"`
	CacheTTL  time.Duration      `yaml:"cache_ttl"`
	RedisAddr string             `yaml:"redis_addr"` // empty: in-process cache
	Guard     market.GuardConfig `yaml:"guard"`
}

type StoreConfig struct {
	// Backend is "memory" or "postgres".
	Backend  string          `yaml:"backend"`
	Postgres postgres.Config `yaml:"postgres"`
}

type OpsConfig struct {
	Addr string `yaml:"addr"` // empty disables the ops server
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Default returns a runnable configuration with every subsystem on its
// defaults.
func Default() Config {
	return Config{
		Run: RunConfig{
			ID:          "default",
			InitialCash: 1_000_000,
			Lookback:    60,
		},
		Strategies: StrategiesConfig{Enabled: []string{"sma_momentum", "zscore_meanrev"}},
		Signals:    signal.DefaultAggregatorConfig(),
		Allocation: AllocationConfig{Method: alloc.MethodEqual},
		Limits:     constraint.DefaultLimits(),
		Risk:       risk.DefaultConfig(),
		Trading:    order.DefaultRules(),
		Market: MarketConfig{
			DataDir:  "data",
			CacheTTL: 15 * time.Minute,
			Guard:    market.DefaultGuardConfig(),
		},
		Store: StoreConfig{Backend: "memory", Postgres: postgres.DefaultConfig()},
		Ops:   OpsConfig{Addr: ""},
		Log:   LogConfig{Level: "info", Console: true},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run.
func (c Config) Validate() error {
	if c.Run.InitialCash <= 0 {
		return fmt.Errorf("config: run.initial_cash must be positive")
	}
	if c.Run.Lookback <= 0 {
		return fmt.Errorf("config: run.lookback_days must be positive")
	}
	switch c.Allocation.Method {
	case alloc.MethodEqual, alloc.MethodRiskParity, alloc.MethodVolTarget,
		alloc.MethodKelly, alloc.MethodMeanVariance, alloc.MethodMaxSharpe,
		alloc.MethodMinVariance:
	default:
		return fmt.Errorf("config: unknown allocation method %q", c.Allocation.Method)
	}
	for _, name := range c.Strategies.Enabled {
		switch name {
		case "sma_momentum", "zscore_meanrev":
		default:
			return fmt.Errorf("config: unknown strategy %q", name)
		}
	}
	switch c.Store.Backend {
	case "", "memory":
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("config: store.postgres.dsn required for postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	for _, d := range []string{c.Run.Start, c.Run.End} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("config: bad date %q: %w", d, err)
		}
	}
	return nil
}
