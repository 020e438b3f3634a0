package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/marketforge/portengine/internal/persistence"
)

type riskRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func (r *riskRepo) Insert(ctx context.Context, rec persistence.RiskRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO risk_reports (run_id, date, drawdown, var_estimate, level, position_ratio, halted, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		rec.RunID, rec.Date, rec.Drawdown, rec.VaR,
		rec.Level, rec.PositionRatio, rec.Halted, rec.Message)
	if err != nil {
		return fmt.Errorf("insert risk report: %w", err)
	}
	return nil
}

func (r *riskRepo) Latest(ctx context.Context, runID string) (*persistence.RiskRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, run_id, date, drawdown, var_estimate, level, position_ratio, halted, message, created_at
		FROM risk_reports
		WHERE run_id = $1
		ORDER BY date DESC, id DESC
		LIMIT 1`

	var rec persistence.RiskRecord
	if err := r.db.GetContext(ctx, &rec, query, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest risk report: %w", err)
	}
	return &rec, nil
}

func (r *riskRepo) ListRange(ctx context.Context, runID string, tr persistence.TimeRange) ([]persistence.RiskRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, run_id, date, drawdown, var_estimate, level, position_ratio, halted, message, created_at
		FROM risk_reports
		WHERE run_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	var out []persistence.RiskRecord
	if err := r.db.SelectContext(ctx, &out, query, runID, tr.From, tr.To); err != nil {
		return nil, fmt.Errorf("list risk reports: %w", err)
	}
	return out, nil
}
