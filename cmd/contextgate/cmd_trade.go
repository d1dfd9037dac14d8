package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"contextgate/internal/app"
	"contextgate/internal/models"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Confirm, close and review trades",
}

var openReq app.TradeRequest

var tradeOpenCmd = &cobra.Command{
	Use:   "open PAIR",
	Short: "Size and record a trade, linking the latest context of the pair",
	Long: `Size a position from --entry and --sl and record it in the trade journal.
--checks takes one boolean per bias checklist item:
EMA aligned, price held by EMA, momentum present, market not choppy.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := openReq
		req.Pair = args[0]
		if cmd.Flags().Changed("source") {
			source, err := parseSource(tradeSource)
			if err != nil {
				return err
			}
			req.PairSource = source
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			conf, err := a.ConfirmTrade(ctx, req)
			if err != nil {
				return err
			}
			return printConfirmation(conf)
		})
	},
}

var tradeSource string

func parseSource(raw string) (models.PairSource, error) {
	return models.ParsePairSource(strings.ToUpper(strings.TrimSpace(raw)))
}

var tradeCloseCmd = &cobra.Command{
	Use:   "close ID",
	Short: "Mark a trade as closed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			rec, err := a.CloseTrade(ctx, args[0])
			if err != nil {
				return err
			}
			return printTrade(rec)
		})
	},
}

var (
	resultR      float64
	resultReason string
)

var tradeResultCmd = &cobra.Command{
	Use:   "result ID",
	Short: "Record the R multiple of a closed trade",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			rec, err := a.AttachResult(ctx, args[0], resultR, resultReason)
			if err != nil {
				return err
			}
			return printTrade(rec)
		})
	},
}

var tradeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades with their time state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return printOverview(a.Trades())
		})
	},
}

func init() {
	f := tradeOpenCmd.Flags()
	f.Float64Var(&openReq.Entry, "entry", 0, "Entry price")
	f.Float64Var(&openReq.StopLoss, "sl", 0, "Stop-loss price")
	f.Float64Var(&openReq.Equity, "equity", 0, "Account equity in USD (default trade.equity)")
	f.Float64Var(&openReq.RiskPercent, "risk", 0, "Risk per trade in percent (default trade.risk_percent)")
	f.Float64Var(&openReq.Leverage, "leverage", 0, "Leverage (default trade.leverage)")
	f.IntVar(&openReq.TimeEvalMinutes, "eval-min", 0, "Minutes before the trade is reviewed (default trade.time_eval_minutes)")
	f.BoolSliceVar(&openReq.Checks, "checks", nil, "Bias checklist answers, e.g. true,true,true,false")
	f.StringVar(&tradeSource, "source", "", "MANUAL or CONTEXT_GATE (default derived from the linked context)")
	tradeOpenCmd.MarkFlagRequired("entry")
	tradeOpenCmd.MarkFlagRequired("sl")

	tradeResultCmd.Flags().Float64Var(&resultR, "r", 0, "Result in R, e.g. -1, 0.5, 2")
	tradeResultCmd.Flags().StringVar(&resultReason, "reason", "", "Exit reason")
	tradeResultCmd.MarkFlagRequired("r")

	tradeCmd.AddCommand(tradeOpenCmd, tradeCloseCmd, tradeResultCmd, tradeListCmd)
	rootCmd.AddCommand(tradeCmd)
}
