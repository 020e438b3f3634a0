package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newBacktestCmd() *cobra.Command {
	var (
		start   string
		end     string
		symbols []string
		dataDir string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run the engine over historical CSV data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if start != "" {
				cfg.Run.Start = start
			}
			if end != "" {
				cfg.Run.End = end
			}
			if len(symbols) > 0 {
				cfg.Run.Symbols = symbols
			}
			if dataDir != "" {
				cfg.Market.DataDir = dataDir
			}
			if cfg.Run.Start == "" || cfg.Run.End == "" {
				return fmt.Errorf("start and end dates are required")
			}
			if len(cfg.Run.Symbols) == 0 {
				return fmt.Errorf("at least one symbol is required")
			}

			from, err := time.Parse("2006-01-02", cfg.Run.Start)
			if err != nil {
				return fmt.Errorf("bad start date: %w", err)
			}
			to, err := time.Parse("2006-01-02", cfg.Run.End)
			if err != nil {
				return fmt.Errorf("bad end date: %w", err)
			}
			if to.Before(from) {
				return fmt.Errorf("end date precedes start date")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			log.Info().Str("run_id", a.cfg.Run.ID).
				Strs("symbols", cfg.Run.Symbols).
				Str("start", cfg.Run.Start).Str("end", cfg.Run.End).
				Msg("starting backtest")

			sum, err := a.engine.RunBacktest(ctx, from, to, cfg.Run.Symbols)
			if err != nil {
				return err
			}

			raw, err := json.MarshalIndent(sum, "", "  ")
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, raw, 0o644); err != nil {
					return fmt.Errorf("write summary: %w", err)
				}
				log.Info().Str("path", outPath).Msg("summary written")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first trading date (2006-01-02)")
	cmd.Flags().StringVar(&end, "end", "", "last trading date (2006-01-02)")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "universe override, comma separated")
	cmd.Flags().StringVar(&dataDir, "data", "", "CSV bar directory (overrides config)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the JSON summary to a file")
	return cmd
}
