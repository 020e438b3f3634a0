package engine

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	ilog "github.com/marketforge/portengine/internal/log"
	"github.com/marketforge/portengine/internal/order"
)

// Summary is the outcome of a full backtest run.
type Summary struct {
	RunID       string    `json:"run_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	InitialCash float64   `json:"initial_cash"`
	FinalEquity float64   `json:"final_equity"`
	TotalReturn float64   `json:"total_return"`
	MaxDrawdown float64   `json:"max_drawdown"`
	Cycles      int       `json:"cycles"`
	Filled      int       `json:"filled"`
	Rejected    int       `json:"rejected"`
	HaltedDays  int       `json:"halted_days"`
}

// RunBacktest drives the engine across every weekday in [start, end].
// The consecutive-loss rule is fed at each day's close.
func (e *Engine) RunBacktest(ctx context.Context, start, end time.Time, symbols []string) (Summary, error) {
	sum := Summary{
		RunID:       e.opts.RunID,
		Start:       start,
		End:         end,
		InitialCash: e.opts.Ledger.InitialCash(),
	}

	total := int(end.Sub(start).Hours()/24) + 1
	progress := ilog.NewProgress("backtest", total)
	defer progress.Done()

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		progress.Step()
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		res, err := e.RunCycle(ctx, date, symbols)
		if err != nil {
			return sum, err
		}
		if res.Halted {
			sum.HaltedDays++
		}
		for _, o := range res.Orders {
			switch o.Status {
			case order.StatusFilled:
				sum.Filled++
			case order.StatusRejected:
				sum.Rejected++
			}
		}
		e.opts.Risk.CloseDay(e.opts.Ledger.EquityValues())
	}

	sum.Cycles = e.cycles
	sum.FinalEquity = e.opts.Ledger.TotalEquity()
	sum.TotalReturn = e.opts.Ledger.Return()
	sum.MaxDrawdown = e.opts.Ledger.MaxDrawdown()

	zlog.Info().
		Str("run_id", sum.RunID).
		Float64("return", sum.TotalReturn).
		Float64("max_drawdown", sum.MaxDrawdown).
		Int("filled", sum.Filled).Int("rejected", sum.Rejected).
		Int("halted_days", sum.HaltedDays).
		Msg("backtest complete")
	return sum, nil
}
