package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marketforge/portengine/internal/ops"
	"github.com/marketforge/portengine/internal/risk"
)

func newServeCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run continuous cycles with the ops endpoint",
		Long: `Runs a trading cycle on an interval and serves /health, /risk and
/metrics. Intended for paper-trading against refreshed CSV data.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Ops.Addr = addr
			}
			if cfg.Ops.Addr == "" {
				cfg.Ops.Addr = ":8090"
			}
			if len(cfg.Run.Symbols) == 0 {
				return fmt.Errorf("at least one symbol is required")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			var (
				mu         sync.Mutex
				lastReport risk.Report
			)
			server := ops.NewServer(cfg.Ops.Addr, a.metrics, func() ops.Status {
				mu.Lock()
				report := lastReport
				mu.Unlock()
				return ops.Status{
					RunID:    a.cfg.Run.ID,
					Equity:   a.ledger.TotalEquity(),
					Report:   report,
					Breaker:  a.riskEng.Breaker().Reason(),
					CycleNum: a.engine.Cycles(),
				}
			})

			serveErr := make(chan error, 1)
			go func() { serveErr <- server.Run(ctx) }()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			log.Info().Str("addr", cfg.Ops.Addr).Dur("interval", interval).Msg("engine serving")
			for {
				select {
				case <-ctx.Done():
					return <-serveErr
				case err := <-serveErr:
					return err
				case <-ticker.C:
					res, err := a.engine.RunCycle(ctx, time.Now().UTC().Truncate(24*time.Hour), cfg.Run.Symbols)
					if err != nil {
						log.Error().Err(err).Msg("cycle failed")
						continue
					}
					mu.Lock()
					lastReport = res.Report
					mu.Unlock()
					a.riskEng.CloseDay(a.ledger.EquityValues())
				}
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "ops listen address (overrides config)")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "cycle interval")
	return cmd
}
