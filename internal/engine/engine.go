// Package engine orchestrates one trading cycle: signals in, risk
// gates applied, orders out, results recorded.
package engine

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketforge/portengine/internal/alloc"
	"github.com/marketforge/portengine/internal/constraint"
	"github.com/marketforge/portengine/internal/ledger"
	"github.com/marketforge/portengine/internal/market"
	"github.com/marketforge/portengine/internal/metrics"
	"github.com/marketforge/portengine/internal/order"
	"github.com/marketforge/portengine/internal/persistence"
	"github.com/marketforge/portengine/internal/risk"
	"github.com/marketforge/portengine/internal/signal"
	"github.com/marketforge/portengine/internal/strategy"
)

// Options assembles an engine. Ledger, Broker and Risk are required;
// the rest default sensibly.
type Options struct {
	RunID      string
	Strategies []strategy.Strategy
	Aggregator *signal.Aggregator
	Allocation alloc.Options
	Limits     constraint.Limits
	Rules      *order.Rules
	Risk       *risk.Engine
	Ledger     *ledger.Ledger
	Broker     order.Broker
	Provider   market.Provider
	Store      *persistence.Store
	Metrics    *metrics.Metrics
	Lookback   int
}

// CycleResult is everything one trading cycle produced.
type CycleResult struct {
	Date      time.Time
	Signals   []signal.Signal
	Decisions map[string]signal.Direction
	Targets   map[string]float64
	Orders    []*order.Order
	RiskScale float64
	Level     risk.Level
	Halted    bool
	Equity    float64
	Report    risk.Report
}

// Engine drives the daily pipeline. It is single-writer: RunCycle must
// not be called concurrently.
type Engine struct {
	opts   Options
	cycles int
}

func New(opts Options) *Engine {
	if opts.Aggregator == nil {
		opts.Aggregator = signal.NewAggregator(signal.DefaultAggregatorConfig())
	}
	if opts.Rules == nil {
		opts.Rules = order.DefaultRules()
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 60
	}
	return &Engine{opts: opts}
}

// Cycles returns how many cycles have run.
func (e *Engine) Cycles() int { return e.cycles }

// RunCycle executes the full pipeline for one trading date against the
// given universe.
func (e *Engine) RunCycle(ctx context.Context, date time.Time, symbols []string) (CycleResult, error) {
	started := time.Now()
	res := CycleResult{Date: date, RiskScale: 1}

	snap, err := market.BuildSnapshot(ctx, e.opts.Provider, symbols, date, e.opts.Lookback)
	if err != nil {
		return res, err
	}
	e.markBook(snap.Prices)
	e.opts.Ledger.RecordEquity(date)

	// Risk first: a halt suppresses the whole cycle, including signal
	// generation cost.
	book := e.opts.Ledger.Snapshot()
	assessment := e.opts.Risk.Evaluate(e.opts.Ledger.EquityValues(), positionValues(book), book.TotalEquity)
	res.RiskScale = assessment.Scale
	res.Level = assessment.Level
	res.Halted = assessment.Halted
	res.Equity = book.TotalEquity
	res.Report = risk.BuildReport(date, assessment)

	if assessment.Halted {
		log.Warn().Time("date", date).Msg("cycle suppressed, trading halted")
		e.finishCycle(ctx, started, res)
		return res, nil
	}

	// Empty snapshot: nothing to decide, keep the book as is.
	if len(snap.Prices) == 0 {
		e.finishCycle(ctx, started, res)
		return res, nil
	}

	for _, s := range e.opts.Strategies {
		res.Signals = append(res.Signals, s.Signals(snap)...)
	}
	res.Decisions = e.opts.Aggregator.DecideCycle(res.Signals, nil, nil)
	e.applyStopLosses(snap, res.Decisions)

	res.Orders = append(res.Orders, e.executeSells(date, snap, res.Decisions)...)

	res.Targets = e.targetPositions(snap, res.Decisions, res.Signals, assessment)
	res.Orders = append(res.Orders, e.executeBuys(date, snap, res.Targets)...)

	res.Equity = e.opts.Ledger.TotalEquity()
	e.finishCycle(ctx, started, res)
	return res, nil
}

// targetPositions turns buy decisions into constrained monetary
// targets. The drawdown scale shrinks the deployable budget before the
// allocator runs; the level's position ratio is advisory and surfaces
// in the daily report instead, so the same drawdown is never counted
// twice.
func (e *Engine) targetPositions(snap market.Snapshot, decisions map[string]signal.Direction, signals []signal.Signal, a risk.Assessment) map[string]float64 {
	scores := make(map[string]float64)
	conf := confidenceBySymbol(decisions, signals)
	for sym, dir := range decisions {
		if dir != signal.Buy {
			continue
		}
		if _, ok := snap.Prices[sym]; !ok {
			continue
		}
		scores[sym] = conf[sym]
	}
	if len(scores) == 0 {
		return map[string]float64{}
	}

	equity := e.opts.Ledger.TotalEquity()
	budget := equity * a.Scale
	if budget <= 0 {
		return map[string]float64{}
	}

	opts := e.opts.Allocation
	opts.Returns, opts.Volatilities = historyStats(snap, scores)
	proposed := alloc.Allocate(budget, scores, opts)
	return e.opts.Limits.Apply(proposed, equity)
}

// applyStopLosses overrides the consensus with a forced sell for any
// held position whose loss has reached the stop threshold. The stop
// wins regardless of what the strategies voted.
func (e *Engine) applyStopLosses(snap market.Snapshot, decisions map[string]signal.Direction) {
	sizer := e.opts.Risk.Sizer()
	for _, sym := range e.opts.Ledger.Symbols() {
		pos, ok := e.opts.Ledger.Position(sym)
		if !ok || pos.AvgCost <= 0 {
			continue
		}
		price, ok := snap.Prices[sym]
		if !ok || price <= 0 {
			continue
		}
		if sizer.StopHit(price/pos.AvgCost - 1) {
			log.Info().Str("symbol", sym).
				Float64("avg_cost", pos.AvgCost).Float64("price", price).
				Msg("stop loss hit, forcing exit")
			decisions[sym] = signal.Sell
		}
	}
}

// executeSells closes positions with a sell decision, honoring T+1 and
// the limit-down band. Sells run before buys so freed cash can fund
// the same cycle's entries.
func (e *Engine) executeSells(date time.Time, snap market.Snapshot, decisions map[string]signal.Direction) []*order.Order {
	var out []*order.Order
	for _, sym := range e.opts.Ledger.Symbols() {
		if decisions[sym] != signal.Sell {
			continue
		}
		price, ok := snap.Prices[sym]
		if !ok || price <= 0 {
			continue
		}
		if !e.opts.Rules.CanSell(sym, date) {
			log.Debug().Str("symbol", sym).Msg("sell blocked by settlement rule")
			continue
		}
		if !e.opts.Rules.CanTrade(price, prevClose(snap, sym), order.Sell) {
			log.Debug().Str("symbol", sym).Msg("sell blocked at limit-down")
			continue
		}
		qty := e.opts.Ledger.HeldQty(sym)
		if qty <= 0 {
			continue
		}
		p := price
		out = append(out, e.submit(sym, qty, order.Sell, &p))
	}
	return out
}

// executeBuys tops positions up to their targets in sorted symbol
// order so runs are reproducible.
func (e *Engine) executeBuys(date time.Time, snap market.Snapshot, targets map[string]float64) []*order.Order {
	syms := make([]string, 0, len(targets))
	for sym := range targets {
		syms = append(syms, sym)
	}
	sort.Strings(syms)

	var out []*order.Order
	for _, sym := range syms {
		price := snap.Prices[sym]
		if price <= 0 {
			continue
		}
		held := 0.0
		if pos, ok := e.opts.Ledger.Position(sym); ok {
			held = pos.MarketValue()
		}
		delta := targets[sym] - held
		if delta <= 0 {
			continue
		}
		if !e.opts.Rules.CanTrade(price, prevClose(snap, sym), order.Buy) {
			log.Debug().Str("symbol", sym).Msg("buy blocked at limit-up")
			continue
		}
		qty := delta / price
		p := price
		o := e.submit(sym, qty, order.Buy, &p)
		if o.Status == order.StatusFilled {
			e.opts.Rules.RecordBuy(sym, date)
		}
		out = append(out, o)
	}
	return out
}

func (e *Engine) submit(sym string, qty float64, side order.Side, price *float64) *order.Order {
	o := e.opts.Broker.Submit(sym, qty, side, price, order.Limit)
	if m := e.opts.Metrics; m != nil {
		m.OrdersTotal.WithLabelValues(string(side), string(o.Status)).Inc()
		if o.Status == order.StatusRejected {
			m.RejectionsTotal.WithLabelValues(string(o.Reason)).Inc()
		}
	}
	return o
}

func (e *Engine) markBook(prices map[string]float64) {
	for _, sym := range e.opts.Ledger.Symbols() {
		if p, ok := prices[sym]; ok {
			e.opts.Ledger.MarkPrice(sym, p)
		}
	}
}

func (e *Engine) finishCycle(ctx context.Context, started time.Time, res CycleResult) {
	e.cycles++
	e.persist(ctx, res)
	if m := e.opts.Metrics; m != nil {
		m.CyclesTotal.Inc()
		m.Equity.Set(res.Equity)
		m.Drawdown.Set(res.Report.Drawdown)
		m.RiskScale.Set(res.RiskScale)
		if res.Halted {
			m.BreakerTripped.Set(1)
		} else {
			m.BreakerTripped.Set(0)
		}
		m.CycleDuration.Observe(time.Since(started).Seconds())
	}
}

func (e *Engine) persist(ctx context.Context, res CycleResult) {
	st := e.opts.Store
	if st == nil {
		return
	}
	if err := st.Equity.Insert(ctx, persistence.EquityPoint{
		RunID: e.opts.RunID, Date: res.Date, Value: res.Equity,
	}); err != nil {
		log.Error().Err(err).Msg("persist equity point failed")
	}
	if err := st.Risk.Insert(ctx, persistence.RiskRecord{
		RunID:         e.opts.RunID,
		Date:          res.Report.Date,
		Drawdown:      res.Report.Drawdown,
		VaR:           res.Report.VaR,
		Level:         string(res.Report.Level),
		PositionRatio: res.Report.PositionRatio,
		Halted:        res.Report.Halted,
		Message:       res.Report.Message,
	}); err != nil {
		log.Error().Err(err).Msg("persist risk report failed")
	}
	for _, o := range res.Orders {
		if err := st.Trades.Insert(ctx, persistence.TradeRecord{
			RunID:      e.opts.RunID,
			OrderID:    o.ID,
			Date:       res.Date,
			Symbol:     o.Symbol,
			Side:       string(o.Side),
			Qty:        o.Qty,
			Price:      o.FilledAvgPrice,
			Commission: o.Commission,
			Status:     string(o.Status),
			Reason:     string(o.Reason),
		}); err != nil {
			log.Error().Err(err).Str("order_id", o.ID).Msg("persist trade failed")
		}
	}
}

// confidenceBySymbol averages the confidence of signals that agree
// with the consensus, so allocation scores reflect conviction rather
// than just direction.
func confidenceBySymbol(decisions map[string]signal.Direction, signals []signal.Signal) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range signals {
		if decisions[s.Symbol] == s.Direction && s.Confidence > 0 {
			sums[s.Symbol] += s.Confidence
			counts[s.Symbol]++
		}
	}
	out := make(map[string]float64, len(decisions))
	for sym := range decisions {
		if counts[sym] > 0 {
			out[sym] = sums[sym] / float64(counts[sym])
		} else {
			out[sym] = 1 // neutral conviction when no confidence reported
		}
	}
	return out
}

func historyStats(snap market.Snapshot, scores map[string]float64) (map[string][]float64, map[string]float64) {
	returns := make(map[string][]float64, len(scores))
	vols := make(map[string]float64, len(scores))
	for sym := range scores {
		r := market.Returns(market.Closes(snap.History[sym]))
		if len(r) == 0 {
			continue
		}
		returns[sym] = r
		_, std := stdOf(r)
		vols[sym] = std
	}
	return returns, vols
}

func stdOf(xs []float64) (mean, std float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= n
	if n < 2 {
		return mean, 0
	}
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / (n - 1))
}

func positionValues(s ledger.Snapshot) map[string]float64 {
	out := make(map[string]float64, len(s.Positions))
	for sym, p := range s.Positions {
		out[sym] = p.MarketValue()
	}
	return out
}

func prevClose(snap market.Snapshot, sym string) float64 {
	bars := snap.History[sym]
	if len(bars) < 2 {
		return 0
	}
	return bars[len(bars)-2].Close
}
