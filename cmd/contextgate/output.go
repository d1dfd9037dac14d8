package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"contextgate/internal/app"
	"contextgate/internal/models"
	"contextgate/internal/trade"
)

var stdout io.Writer = os.Stdout

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEvaluation(ev app.Evaluation) error {
	if jsonOutput {
		return printJSON(ev)
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Pair\t%s (%s)\n", ev.Pair, ev.InstID)
	fmt.Fprintf(w, "Time\t%s, %s\n", ev.EvaluatedAt.Format(models.TimestampLayout), ev.Session)
	fmt.Fprintf(w, "Verdict\t%s\n", ev.Rendered.Verdict)
	fmt.Fprintf(w, "Behavior\t%s\n", ev.Rendered.Behavior)
	fmt.Fprintf(w, "Volume\t%s (rv %.2f)\n", ev.Rendered.Volume, ev.Labels.Ratios.RV)
	fmt.Fprintf(w, "Volatility\t%s (rvol %.2f)\n", ev.Rendered.Volatility, ev.Labels.Ratios.RVol)
	fmt.Fprintf(w, "Open interest\t%s (delta %s)\n", ev.Rendered.OI, strconv.FormatFloat(ev.Labels.Ratios.OIDelta, 'f', -1, 64))
	if d := ev.Labels.Degenerate; d.Any() {
		fmt.Fprintf(w, "Fallbacks\tvolatility=%t volume=%t oi_unavailable=%t\n", d.VolatilityFloored, d.VolumeFloored, d.OIUnavailable)
	}
	return w.Flush()
}

func printContexts(records []models.ContextRecord) error {
	if jsonOutput {
		return printJSON(records)
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPAIR\tSESSION\tBEHAVIOR\tVERDICT\tDECISION\tNOTE")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Format(models.TimestampLayout), r.Pair, r.Session, r.Behavior, r.Verdict, r.Decision, r.Note)
	}
	return w.Flush()
}

func printTrade(t models.TradeRecord) error {
	if jsonOutput {
		return printJSON(t)
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", t.ID)
	fmt.Fprintf(w, "Pair\t%s %s (%s)\n", t.Pair, t.Direction, t.PairSource)
	fmt.Fprintf(w, "Status\t%s\n", t.Status)
	if t.ResultR != nil {
		fmt.Fprintf(w, "Result\t%gR %s\n", *t.ResultR, t.ExitReason)
	}
	return w.Flush()
}

func printConfirmation(c app.Confirmation) error {
	if jsonOutput {
		return printJSON(c)
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", c.Trade.ID)
	fmt.Fprintf(w, "Pair\t%s %s (%s)\n", c.Trade.Pair, c.Sizing.Direction, c.Trade.PairSource)
	printSizing(w, c.Sizing)
	if lc := c.Trade.LinkedContext; lc != nil {
		fmt.Fprintf(w, "Context\t%s %s / %s\n", lc.Timestamp.Format(models.TimestampLayout), lc.Behavior, lc.Verdict)
	} else {
		fmt.Fprintln(w, "Context\tnone within lag")
	}
	return w.Flush()
}

func printSizing(w io.Writer, s trade.Sizing) {
	fmt.Fprintf(w, "Risk\t%g USD\n", s.RiskUSD)
	fmt.Fprintf(w, "Stop distance\t%g\n", s.StopDistance)
	fmt.Fprintf(w, "Position size\t%g USD\n", s.PositionSize)
	fmt.Fprintf(w, "Margin\t%g USD\n", s.Margin)
}

func printOverview(o app.TradeOverview) error {
	if jsonOutput {
		return printJSON(o)
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOPENED\tPAIR\tDIR\tSTATE\tELAPSED\tR\tCTX VERDICT")
	for _, t := range o.Trades {
		r := "-"
		if t.ResultR != nil {
			r = strconv.FormatFloat(*t.ResultR, 'f', -1, 64)
		}
		verdict := "-"
		if t.LinkedContext != nil {
			verdict = string(t.LinkedContext.Verdict)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%dm\t%s\t%s\n",
			t.ID, t.Timestamp.Format(trade.TimestampLayout), t.Pair, t.Direction, t.TimeState, t.ElapsedMinutes, r, verdict)
	}
	s := o.Summary
	fmt.Fprintf(w, "\nactive %d, mature %d, done %d, awaiting result %d\n", s.Active, s.Mature, s.Done, s.PendingResults)
	if s.Overloaded {
		fmt.Fprintln(w, "warning: too many active trades")
	}
	return w.Flush()
}
