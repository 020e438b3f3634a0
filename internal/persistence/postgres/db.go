// Package postgres implements the persistence repositories on
// PostgreSQL via sqlx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/marketforge/portengine/internal/persistence"
)

const defaultTimeout = 5 * time.Second

// Config holds connection settings for the results database.
type Config struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	Timeout      time.Duration `yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{MaxOpenConns: 10, MaxIdleConns: 5, Timeout: defaultTimeout}
}

// Connect opens the database, applies pool settings and verifies
// connectivity.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Info().Int("max_open", cfg.MaxOpenConns).Msg("connected to results database")
	return db, nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

// NewStore wires the three repositories over one connection pool.
func NewStore(db *sqlx.DB, timeout time.Duration) persistence.Store {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return persistence.Store{
		Equity: &equityRepo{db: db, timeout: timeout},
		Trades: &tradesRepo{db: db, timeout: timeout},
		Risk:   &riskRepo{db: db, timeout: timeout},
	}
}

// Schema creates the results tables when they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS equity_curve (
	run_id  TEXT             NOT NULL,
	date    DATE             NOT NULL,
	value   DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, date)
);

CREATE TABLE IF NOT EXISTS trades (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT             NOT NULL,
	order_id    TEXT             NOT NULL,
	date        DATE             NOT NULL,
	symbol      TEXT             NOT NULL,
	side        TEXT             NOT NULL,
	qty         DOUBLE PRECISION NOT NULL,
	price       DOUBLE PRECISION NOT NULL,
	commission  DOUBLE PRECISION NOT NULL DEFAULT 0,
	status      TEXT             NOT NULL,
	reason      TEXT             NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ      NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS trades_run_symbol_idx ON trades (run_id, symbol, date);

CREATE TABLE IF NOT EXISTS risk_reports (
	id             BIGSERIAL PRIMARY KEY,
	run_id         TEXT             NOT NULL,
	date           DATE             NOT NULL,
	drawdown       DOUBLE PRECISION NOT NULL,
	var_estimate   DOUBLE PRECISION NOT NULL,
	level          TEXT             NOT NULL,
	position_ratio DOUBLE PRECISION NOT NULL,
	halted         BOOLEAN          NOT NULL,
	message        TEXT             NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ      NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS risk_reports_run_date_idx ON risk_reports (run_id, date);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
