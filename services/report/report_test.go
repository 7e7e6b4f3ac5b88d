package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"trendeval/services/engine"
)

func TestWrite(t *testing.T) {
	res := &engine.Result{
		Instrument:    "TEST",
		BarsProcessed: 30,
		Metrics: engine.Metrics{
			FinalEquity:        decimal.NewFromFloat(10288.9),
			PnL:                decimal.NewFromFloat(288.9),
			MaxDrawdownPercent: 1.5,
			TotalTrades:        1,
			Wins:               1,
			WinRatePercent:     100,
		},
		Trades: []engine.Trade{{
			Instrument:  "TEST",
			EntryPrice:  decimal.NewFromInt(108),
			ExitPrice:   decimal.NewFromInt(114),
			Size:        decimal.NewFromInt(50),
			RealizedPnL: decimal.NewFromFloat(288.9),
			ExitReason:  "target",
		}},
	}

	var buf bytes.Buffer
	Write(&buf, res)
	out := buf.String()

	for _, want := range []string{"TEST", "10288.90", "288.90", "1.50%", "target"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// Undefined ratios are labeled, never rendered as zero.
	if !strings.Contains(out, "undefined") {
		t.Errorf("nil ratios not labeled undefined:\n%s", out)
	}
}

func TestWriteBatchSortsInstruments(t *testing.T) {
	batch := &engine.BatchResult{
		Manifest: engine.RunManifest{JobID: "job-1", ConfigHash: "abcdef1234567890"},
		Results: map[string]*engine.Result{
			"ZZZ": {Instrument: "ZZZ"},
			"AAA": {Instrument: "AAA"},
		},
		Errors: map[string]string{"BAD": "duplicate timestamp"},
	}

	var buf bytes.Buffer
	WriteBatch(&buf, batch)
	out := buf.String()

	if strings.Index(out, "AAA") > strings.Index(out, "ZZZ") {
		t.Errorf("instruments not sorted:\n%s", out)
	}
	if !strings.Contains(out, "FAILED BAD: duplicate timestamp") {
		t.Errorf("failure line missing:\n%s", out)
	}
}
