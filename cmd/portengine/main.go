package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	ilog "github.com/marketforge/portengine/internal/log"
)

const (
	appName = "portengine"
	version = "v0.3.0"
)

var rootFlags struct {
	configPath string
	logLevel   string
	jsonLogs   bool
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Portfolio simulation and risk-gated allocation engine",
		Version: version,
		Long: `portengine runs a signal-driven portfolio engine: strategies emit
signals, an aggregator builds consensus, capital is allocated under
position constraints, and risk overlays gate every order before a
simulated broker fills it.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			ilog.Init(rootFlags.logLevel, !rootFlags.jsonLogs)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configPath, "config", "c", "", "path to YAML config (defaults apply when omitted)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "trace|debug|info|warn|error")
	pf.BoolVar(&rootFlags.jsonLogs, "json-logs", false, "emit JSON logs instead of console output")
	pf.SetNormalizeFunc(normalizeFlags)

	rootCmd.AddCommand(newBacktestCmd())
	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// normalizeFlags lets users write underscores where the flag uses
// dashes.
func normalizeFlags(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}
