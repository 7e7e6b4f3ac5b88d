// Package report renders evaluation results for the console.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"trendeval/services/engine"
)

// Write prints a fixed-width summary of one result.
func Write(w io.Writer, res *engine.Result) {
	m := res.Metrics
	fmt.Fprintf(w, "Instrument        %s\n", res.Instrument)
	fmt.Fprintf(w, "Bars processed    %d\n", res.BarsProcessed)
	fmt.Fprintf(w, "Final equity      %s\n", m.FinalEquity.StringFixed(2))
	fmt.Fprintf(w, "PnL               %s\n", m.PnL.StringFixed(2))
	fmt.Fprintf(w, "CAGR              %s\n", pctOrUndefined(m.CAGRPercent))
	fmt.Fprintf(w, "Sharpe ratio      %s\n", ratioOrUndefined(m.SharpeRatio))
	fmt.Fprintf(w, "Max drawdown      %.2f%%\n", m.MaxDrawdownPercent)
	fmt.Fprintf(w, "Trades            %d (%d wins / %d losses, win rate %.1f%%)\n",
		m.TotalTrades, m.Wins, m.Losses, m.WinRatePercent)
	fmt.Fprintf(w, "Profit factor     %s\n", ratioOrUndefined(m.ProfitFactor))
	if m.TotalTrades > 0 {
		fmt.Fprintf(w, "Avg win / loss    %s / %s\n", m.AvgWin.StringFixed(2), m.AvgLoss.StringFixed(2))
		fmt.Fprintf(w, "Expectancy        %s\n", m.Expectancy.StringFixed(2))
	}

	if len(res.Trades) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%-12s %-12s %10s %10s %12s %10s  %s\n",
		"entry", "exit", "entry px", "exit px", "size", "pnl", "reason")
	for _, t := range res.Trades {
		fmt.Fprintf(w, "%-12s %-12s %10s %10s %12s %10s  %s\n",
			day(t.EntryTime), day(t.ExitTime),
			t.EntryPrice.StringFixed(2), t.ExitPrice.StringFixed(2),
			t.Size.StringFixed(4), t.RealizedPnL.StringFixed(2), t.ExitReason)
	}
}

// WriteBatch prints one summary block per instrument plus any
// per-instrument failures.
func WriteBatch(w io.Writer, batch *engine.BatchResult) {
	fmt.Fprintf(w, "Job %s (config %s)\n\n", batch.Manifest.JobID, short(batch.Manifest.ConfigHash))
	for _, res := range sortedResults(batch) {
		Write(w, res)
		fmt.Fprintln(w)
	}
	for instrument, msg := range batch.Errors {
		fmt.Fprintf(w, "FAILED %s: %s\n", instrument, msg)
	}
}

func sortedResults(batch *engine.BatchResult) []*engine.Result {
	out := make([]*engine.Result, 0, len(batch.Results))
	for _, res := range batch.Results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

func pctOrUndefined(v *float64) string {
	if v == nil {
		return "undefined"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func ratioOrUndefined(v *float64) string {
	if v == nil {
		return "undefined"
	}
	return fmt.Sprintf("%.3f", *v)
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func day(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}
