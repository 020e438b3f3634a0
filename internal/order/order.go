// Package order implements the order life cycle and the simulated
// fill model used by backtests and paper sessions. Orders transition
// exactly once from SUBMITTED to a terminal state; trading-rule
// violations surface as REJECTED orders with a reason code, never as
// errors.
package order

import (
	"time"

	"github.com/google/uuid"
)

// Side is the order direction.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Valid reports whether the side is one of BUY/SELL.
func (s Side) Valid() bool { return s == Buy || s == Sell }

// Kind distinguishes limit and market orders.
type Kind string

const (
	Limit  Kind = "limit"
	Market Kind = "market"
)

// Status is the order state. PartialFilled is reserved for a future
// asynchronous broker and is never produced by the simulator.
type Status string

const (
	StatusSubmitted     Status = "submitted"
	StatusPartialFilled Status = "partial_filled"
	StatusFilled        Status = "filled"
	StatusRejected      Status = "rejected"
	StatusCancelled     Status = "cancelled"
)

// Terminal reports whether the status permits no further transition.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusRejected || s == StatusCancelled
}

// RejectReason classifies why the simulator refused an order.
type RejectReason string

const (
	ReasonNone                 RejectReason = ""
	ReasonInvalidQuantity      RejectReason = "invalid_quantity"
	ReasonInvalidSide          RejectReason = "invalid_side"
	ReasonNoPrice              RejectReason = "no_price"
	ReasonInsufficientCash     RejectReason = "insufficient_cash"
	ReasonInsufficientHoldings RejectReason = "insufficient_holdings"
)

// Order is a single order record. Price nil means market.
type Order struct {
	ID             string       `json:"id"`
	Symbol         string       `json:"symbol"`
	Side           Side         `json:"side"`
	Qty            float64      `json:"qty"`
	Price          *float64     `json:"price,omitempty"`
	Kind           Kind         `json:"kind"`
	Status         Status       `json:"status"`
	Reason         RejectReason `json:"reason,omitempty"`
	FilledQty      float64      `json:"filled_qty"`
	FilledAvgPrice float64      `json:"filled_avg_price"`
	Commission     float64      `json:"commission"`
	CreatedAt      time.Time    `json:"created_at"`
}

func newOrder(symbol string, qty float64, side Side, price *float64, kind Kind, now time.Time) *Order {
	return &Order{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		Qty:       qty,
		Price:     price,
		Kind:      kind,
		Status:    StatusSubmitted,
		CreatedAt: now,
	}
}

func (o *Order) reject(reason RejectReason) *Order {
	o.Status = StatusRejected
	o.Reason = reason
	o.FilledQty = 0
	o.FilledAvgPrice = 0
	return o
}

func (o *Order) fill(qty, avgPrice, commission float64) *Order {
	o.Status = StatusFilled
	o.FilledQty = qty
	o.FilledAvgPrice = avgPrice
	o.Commission = commission
	return o
}
