package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/merlin/internal/config"
)

// cfg is loaded once per invocation, before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "merlin",
	Short: "Enrichment-to-score triage for early-stage companies",
	Long:  "Looks companies up in Harmonic, normalizes the vendor payload, derives founder and market features, and ranks every company with a weighted team, market and funding score.",

	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// bootstrap loads MERLIN_* configuration and installs the global logger.
func bootstrap() error {
	c, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "merlin: load config")
	}
	if err := config.InitLogger(c.Log); err != nil {
		return eris.Wrap(err, "merlin: init logger")
	}
	cfg = c

	zap.L().Debug("merlin: config loaded",
		zap.String("store_driver", cfg.Store.Driver),
		zap.Int("max_concurrent_companies", cfg.Batch.MaxConcurrentCompanies),
	)
	return nil
}

func main() {
	// SIGINT/SIGTERM cancel the command context for every subcommand.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
