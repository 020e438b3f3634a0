// Package persistence stores backtest and trading results: the equity
// curve, the trade log and daily risk reports.
package persistence

import (
	"context"
	"time"
)

// TimeRange is a closed [From, To] query window.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the range. A zero bound is
// open on that side.
func (tr TimeRange) Contains(t time.Time) bool {
	if !tr.From.IsZero() && t.Before(tr.From) {
		return false
	}
	if !tr.To.IsZero() && t.After(tr.To) {
		return false
	}
	return true
}

// EquityPoint is one day of the portfolio equity curve.
type EquityPoint struct {
	RunID string    `json:"run_id" db:"run_id"`
	Date  time.Time `json:"date" db:"date"`
	Value float64   `json:"value" db:"value"`
}

// TradeRecord is one order outcome, filled or rejected.
type TradeRecord struct {
	ID         int64     `json:"id" db:"id"`
	RunID      string    `json:"run_id" db:"run_id"`
	OrderID    string    `json:"order_id" db:"order_id"`
	Date       time.Time `json:"date" db:"date"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Side       string    `json:"side" db:"side"`
	Qty        float64   `json:"qty" db:"qty"`
	Price      float64   `json:"price" db:"price"`
	Commission float64   `json:"commission" db:"commission"`
	Status     string    `json:"status" db:"status"`
	Reason     string    `json:"reason,omitempty" db:"reason"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// RiskRecord is the persisted form of a daily risk report.
type RiskRecord struct {
	ID            int64     `json:"id" db:"id"`
	RunID         string    `json:"run_id" db:"run_id"`
	Date          time.Time `json:"date" db:"date"`
	Drawdown      float64   `json:"drawdown" db:"drawdown"`
	VaR           float64   `json:"var" db:"var_estimate"`
	Level         string    `json:"level" db:"level"`
	PositionRatio float64   `json:"position_ratio" db:"position_ratio"`
	Halted        bool      `json:"halted" db:"halted"`
	Message       string    `json:"message" db:"message"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// EquityRepo persists the equity curve per run.
type EquityRepo interface {
	Insert(ctx context.Context, point EquityPoint) error
	InsertBatch(ctx context.Context, points []EquityPoint) error
	ListRange(ctx context.Context, runID string, tr TimeRange) ([]EquityPoint, error)
}

// TradesRepo persists order outcomes.
type TradesRepo interface {
	Insert(ctx context.Context, trade TradeRecord) error
	ListBySymbol(ctx context.Context, runID, symbol string, tr TimeRange, limit int) ([]TradeRecord, error)
	ListRange(ctx context.Context, runID string, tr TimeRange) ([]TradeRecord, error)
	Count(ctx context.Context, runID string) (int64, error)
}

// RiskRepo persists daily risk reports.
type RiskRepo interface {
	Insert(ctx context.Context, record RiskRecord) error
	Latest(ctx context.Context, runID string) (*RiskRecord, error)
	ListRange(ctx context.Context, runID string, tr TimeRange) ([]RiskRecord, error)
}

// Store aggregates the repositories behind one handle.
type Store struct {
	Equity EquityRepo
	Trades TradesRepo
	Risk   RiskRepo
}
