package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/marketforge/portengine/internal/persistence"
)

type equityRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func (r *equityRepo) Insert(ctx context.Context, p persistence.EquityPoint) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO equity_curve (run_id, date, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, date) DO UPDATE SET value = EXCLUDED.value`

	if _, err := r.db.ExecContext(ctx, query, p.RunID, p.Date, p.Value); err != nil {
		return fmt.Errorf("insert equity point: %w", err)
	}
	return nil
}

func (r *equityRepo) InsertBatch(ctx context.Context, points []persistence.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin equity batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO equity_curve (run_id, date, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, date) DO UPDATE SET value = EXCLUDED.value`)
	if err != nil {
		return fmt.Errorf("prepare equity batch: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.RunID, p.Date, p.Value); err != nil {
			return fmt.Errorf("insert equity point in batch: %w", err)
		}
	}
	return tx.Commit()
}

func (r *equityRepo) ListRange(ctx context.Context, runID string, tr persistence.TimeRange) ([]persistence.EquityPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT run_id, date, value
		FROM equity_curve
		WHERE run_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	var out []persistence.EquityPoint
	if err := r.db.SelectContext(ctx, &out, query, runID, tr.From, tr.To); err != nil {
		return nil, fmt.Errorf("list equity range: %w", err)
	}
	return out, nil
}
