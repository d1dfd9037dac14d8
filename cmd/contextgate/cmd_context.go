package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"contextgate/internal/app"
	"contextgate/internal/journal"
	"contextgate/internal/models"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Save and list journaled market contexts",
}

var (
	saveDecision string
	saveNote     string
)

var contextSaveCmd = &cobra.Command{
	Use:   "save PAIR",
	Short: "Evaluate PAIR and journal the result with a decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		decision, err := models.ParseDecision(strings.ToUpper(saveDecision))
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			ev, err := a.Evaluate(ctx, args[0])
			if err != nil {
				return err
			}
			if err := printEvaluation(ev); err != nil {
				return err
			}
			rec, err := a.SaveContext(ctx, ev, decision, saveNote)
			if err != nil {
				return err
			}
			return printContexts([]models.ContextRecord{rec})
		})
	},
}

var (
	listPair  string
	listUntil string
)

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			f := journal.Filter{Pair: strings.ToUpper(listPair)}
			if listUntil != "" {
				t, err := time.ParseInLocation(models.TimestampLayout, listUntil, a.Location())
				if err != nil {
					return err
				}
				f.Until = t
			}
			records, err := a.Contexts(ctx, f)
			if err != nil {
				return err
			}
			return printContexts(records)
		})
	},
}

func init() {
	contextSaveCmd.Flags().StringVar(&saveDecision, "decision", string(models.DecisionSkipped), "TAKEN or SKIPPED")
	contextSaveCmd.Flags().StringVar(&saveNote, "note", "", "Free-text note")
	contextListCmd.Flags().StringVar(&listPair, "pair", "", "Only this pair")
	contextListCmd.Flags().StringVar(&listUntil, "until", "", "Only records at or before this time (YYYY-MM-DD HH:MM, local)")

	contextCmd.AddCommand(contextSaveCmd, contextListCmd)
	rootCmd.AddCommand(contextCmd)
}
