package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"PriceScanner/internal/config"
	"PriceScanner/internal/logging"
)

// cli carries the loaded configuration into every subcommand.
type cli struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	c := &cli{cfg: cfg, logger: logger}

	root := &cobra.Command{
		Use:   "pricescanner",
		Short: "Competitive price analysis for XML product feeds",
		Long: `pricescanner reads XML price feeds, groups the listings of each product,
compares own-store prices against competitors and reports where a price
sits above or below the market average.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(c.newAnalyzeCmd(), c.newLastCmd(), c.newParseCmd(), c.newWatchCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	// stdout is reserved for reports.
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	if err := newRootCmd(cfg, logger).ExecuteContext(ctx); err != nil {
		logger.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}
