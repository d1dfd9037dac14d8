package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"contextgate/internal/app"
	"contextgate/logger"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate PAIR",
	Short: "Classify the current market context of a pair",
	Long: `Fetch candles, ticker and open-interest history for PAIR (for example
BTCUSDT) from OKX and print the context labels and verdict.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			ev, err := a.Evaluate(ctx, args[0])
			if err != nil {
				return err
			}
			return printEvaluation(ev)
		})
	},
}

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch PAIR...",
	Short: "Re-evaluate pairs and open trades on a fixed interval",
	Long: `Refresh the context of every PAIR and the time state of open trades
until interrupted. The interval defaults to dashboard.refresh_interval.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			interval := watchInterval
			if interval <= 0 {
				interval = a.Config().Dashboard.RefreshInterval
			}
			if interval <= 0 {
				interval = time.Minute
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				refresh(ctx, a, args)
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	},
}

func refresh(ctx context.Context, a *app.App, pairs []string) {
	log := logger.GetLogger().WithComponent("watch")
	for _, pair := range pairs {
		ev, err := a.Evaluate(ctx, pair)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"pair": pair}).Warn("evaluation failed")
			continue
		}
		if err := printEvaluation(ev); err != nil {
			log.WithError(err).Warn("print failed")
		}
		fmt.Fprintln(stdout)
	}
	if err := printOverview(a.Trades()); err != nil {
		log.WithError(err).Warn("print failed")
	}
	fmt.Fprintln(stdout)
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Refresh interval (default dashboard.refresh_interval)")
	rootCmd.AddCommand(evaluateCmd, watchCmd)
}
