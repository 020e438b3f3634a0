package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketforge/portengine/internal/alloc"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
run:
  id: backtest-42
  initial_cash: 500000
  symbols: [AAA, BBB]
  start: "2024-01-02"
  end: "2024-06-28"
allocation:
  method: risk_parity
limits:
  max_single_pct: 0.2
risk:
  breaker:
    max_daily_loss_pct: 0.03
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "backtest-42", cfg.Run.ID)
	assert.Equal(t, 500000.0, cfg.Run.InitialCash)
	assert.Equal(t, []string{"AAA", "BBB"}, cfg.Run.Symbols)
	assert.Equal(t, alloc.MethodRiskParity, cfg.Allocation.Method)
	assert.Equal(t, 0.2, cfg.Limits.MaxSinglePct)
	assert.Equal(t, 0.03, cfg.Risk.Breaker.MaxDailyLossPct)
	// Untouched sections keep their defaults.
	assert.Equal(t, 0.15, cfg.Risk.Breaker.MaxDrawdown)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	cfg := Default()
	cfg.Run.InitialCash = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Allocation.Method = "martingale"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.Backend = "postgres"
	assert.Error(t, cfg.Validate(), "postgres backend without dsn")

	cfg = Default()
	cfg.Run.Start = "01/02/2024"
	assert.Error(t, cfg.Validate())
}
