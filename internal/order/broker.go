package order

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketforge/portengine/internal/ledger"
)

// Broker is the capability the execution layer needs. Any type with
// Submit/Cancel satisfies it; the engine never depends on SimBroker
// concretely so a live adapter can be substituted.
type Broker interface {
	Submit(symbol string, qty float64, side Side, limitPrice *float64, kind Kind) *Order
	Cancel(orderID string) bool
}

// SimBroker fills orders synchronously against the requested price,
// applying slippage and commission, and settles them into the ledger.
// It owns every order it creates; lookups are by ID only.
type SimBroker struct {
	mu         sync.Mutex
	book       *ledger.Ledger
	slippage   float64 // fraction, e.g. 0.001 = 0.1%
	commission float64 // fraction of filled notional
	orders     map[string]*Order
	now        func() time.Time
}

// NewSimBroker creates a simulator settling into book.
func NewSimBroker(book *ledger.Ledger, slippagePct, commissionPct float64) *SimBroker {
	return &SimBroker{
		book:       book,
		slippage:   slippagePct,
		commission: commissionPct,
		orders:     make(map[string]*Order),
		now:        time.Now,
	}
}

// Ledger exposes the account book the broker settles into.
func (b *SimBroker) Ledger() *ledger.Ledger { return b.book }

// FillPrice applies slippage to the requested price: inflated for a
// buy, deflated for a sell.
func (b *SimBroker) FillPrice(price float64, side Side) float64 {
	if b.slippage <= 0 {
		return price
	}
	if side == Buy {
		return price * (1 + b.slippage)
	}
	return price * (1 - b.slippage)
}

// Submit runs the full admission and fill sequence. Every outcome is
// an order value: invalid input and trading-rule violations come back
// as REJECTED with a reason code, never as an error.
func (b *SimBroker) Submit(symbol string, qty float64, side Side, limitPrice *float64, kind Kind) *Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	o := newOrder(symbol, qty, side, limitPrice, kind, b.now())
	b.orders[o.ID] = o

	if !side.Valid() {
		return b.logOutcome(o.reject(ReasonInvalidSide))
	}
	if qty <= 0 {
		return b.logOutcome(o.reject(ReasonInvalidQuantity))
	}
	if limitPrice == nil || *limitPrice <= 0 {
		// The simulator has no book to price a market order against.
		return b.logOutcome(o.reject(ReasonNoPrice))
	}

	fillPrice := b.FillPrice(*limitPrice, side)
	commission := qty * fillPrice * b.commission

	switch side {
	case Buy:
		if err := b.book.ApplyBuy(symbol, qty, fillPrice, commission); err != nil {
			return b.logOutcome(o.reject(ReasonInsufficientCash))
		}
	case Sell:
		if err := b.book.ApplySell(symbol, qty, fillPrice, commission); err != nil {
			return b.logOutcome(o.reject(ReasonInsufficientHoldings))
		}
	}
	return b.logOutcome(o.fill(qty, fillPrice, commission))
}

// Cancel succeeds only while the order is still SUBMITTED. In the
// synchronous simulator orders never rest, so this mostly documents
// the contract a future async broker must honor.
func (b *SimBroker) Cancel(orderID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok || o.Status != StatusSubmitted {
		return false
	}
	o.Status = StatusCancelled
	return true
}

// Lookup returns the order by identity.
func (b *SimBroker) Lookup(orderID string) (*Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	return o, ok
}

// Orders returns every order the broker has created, in no particular
// order.
func (b *SimBroker) Orders() []*Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	return out
}

func (b *SimBroker) logOutcome(o *Order) *Order {
	ev := log.Debug().
		Str("order_id", o.ID).
		Str("symbol", o.Symbol).
		Str("side", string(o.Side)).
		Float64("qty", o.Qty).
		Str("status", string(o.Status))
	if o.Status == StatusRejected {
		ev.Str("reason", string(o.Reason))
	} else {
		ev.Float64("fill_price", o.FilledAvgPrice).Float64("commission", o.Commission)
	}
	ev.Msg("order settled")
	return o
}
