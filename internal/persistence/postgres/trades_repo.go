package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/marketforge/portengine/internal/persistence"
)

type tradesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func (r *tradesRepo) Insert(ctx context.Context, t persistence.TradeRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO trades (run_id, order_id, date, symbol, side, qty, price, commission, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		t.RunID, t.OrderID, t.Date, t.Symbol, t.Side,
		t.Qty, t.Price, t.Commission, t.Status, t.Reason)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate trade %s: %w", t.OrderID, err)
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (r *tradesRepo) ListBySymbol(ctx context.Context, runID, symbol string, tr persistence.TimeRange, limit int) ([]persistence.TradeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, run_id, order_id, date, symbol, side, qty, price, commission, status, reason, created_at
		FROM trades
		WHERE run_id = $1 AND symbol = $2 AND date >= $3 AND date <= $4
		ORDER BY date ASC, id ASC
		LIMIT $5`

	var out []persistence.TradeRecord
	if err := r.db.SelectContext(ctx, &out, query, runID, symbol, tr.From, tr.To, limit); err != nil {
		return nil, fmt.Errorf("list trades by symbol: %w", err)
	}
	return out, nil
}

func (r *tradesRepo) ListRange(ctx context.Context, runID string, tr persistence.TimeRange) ([]persistence.TradeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, run_id, order_id, date, symbol, side, qty, price, commission, status, reason, created_at
		FROM trades
		WHERE run_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC, id ASC`

	var out []persistence.TradeRecord
	if err := r.db.SelectContext(ctx, &out, query, runID, tr.From, tr.To); err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return out, nil
}

func (r *tradesRepo) Count(ctx context.Context, runID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM trades WHERE run_id = $1`, runID); err != nil {
		return 0, fmt.Errorf("count trades: %w", err)
	}
	return n, nil
}
