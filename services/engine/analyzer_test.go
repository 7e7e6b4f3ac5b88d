package engine

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func accountWithHistory(initial float64, equities []float64) *Account {
	a := NewAccount(decimal.NewFromFloat(initial))
	for i, eq := range equities {
		a.MarkToMarket(int64(i)*millisPerCalendarDay, decimal.NewFromFloat(eq), decimal.NewFromInt(1))
		// MarkToMarket computes cash + size*close; build the curve
		// directly instead by overwriting the point.
		a.history[i] = EquityPoint{Timestamp: int64(i) * millisPerCalendarDay, Equity: decimal.NewFromFloat(eq)}
	}
	return a
}

func TestAnalyzeFlatCurve(t *testing.T) {
	equities := make([]float64, 30)
	for i := range equities {
		equities[i] = 10000
	}
	m := Analyze(accountWithHistory(10000, equities), nil, 0)

	if !m.PnL.IsZero() {
		t.Errorf("pnl %s, want 0", m.PnL)
	}
	if m.MaxDrawdownPercent != 0 {
		t.Errorf("drawdown %v, want 0", m.MaxDrawdownPercent)
	}
	if m.CAGRPercent == nil || *m.CAGRPercent != 0 {
		t.Errorf("cagr %v, want 0", m.CAGRPercent)
	}
	// Zero variance: ratio undefined, not zero.
	if m.SharpeRatio != nil {
		t.Errorf("sharpe %v, want undefined", *m.SharpeRatio)
	}
	if m.TotalTrades != 0 {
		t.Errorf("trades %d, want 0", m.TotalTrades)
	}
}

func TestAnalyzeUndefinedOnShortHistory(t *testing.T) {
	m := Analyze(accountWithHistory(10000, []float64{10000}), nil, 0)
	if m.CAGRPercent != nil {
		t.Error("cagr defined with one equity point")
	}
	if m.SharpeRatio != nil {
		t.Error("sharpe defined with one equity point")
	}
}

func TestAnalyzeCAGRDoublingInAYear(t *testing.T) {
	equities := make([]float64, calendarDaysPerYear+1)
	for i := range equities {
		equities[i] = 10000 * (1 + float64(i)/calendarDaysPerYear)
	}
	m := Analyze(accountWithHistory(10000, equities), nil, 0)
	if m.CAGRPercent == nil {
		t.Fatal("cagr undefined")
	}
	if math.Abs(*m.CAGRPercent-100) > 1e-6 {
		t.Errorf("cagr %v%%, want 100%%", *m.CAGRPercent)
	}
}

func TestMaxDrawdown(t *testing.T) {
	// Peak 120, trough 90: 25% drawdown.
	m := Analyze(accountWithHistory(100, []float64{100, 120, 90, 110, 115}), nil, 0)
	if math.Abs(m.MaxDrawdownPercent-25) > 1e-9 {
		t.Errorf("drawdown %v, want 25", m.MaxDrawdownPercent)
	}
	if m.MaxDrawdownPercent < 0 || m.MaxDrawdownPercent > 100 {
		t.Errorf("drawdown %v outside [0,100]", m.MaxDrawdownPercent)
	}
}

func TestTradeStats(t *testing.T) {
	trades := []Trade{
		{RealizedPnL: decimal.NewFromInt(100)},
		{RealizedPnL: decimal.NewFromInt(-40)},
		{RealizedPnL: decimal.NewFromInt(60)},
		{RealizedPnL: decimal.NewFromInt(-10)},
	}
	m := Analyze(accountWithHistory(1000, []float64{1000, 1110}), trades, 0)

	if m.TotalTrades != 4 || m.Wins != 2 || m.Losses != 2 {
		t.Fatalf("counts %d/%d/%d, want 4/2/2", m.TotalTrades, m.Wins, m.Losses)
	}
	if m.WinRatePercent != 50 {
		t.Errorf("win rate %v, want 50", m.WinRatePercent)
	}
	if m.ProfitFactor == nil || math.Abs(*m.ProfitFactor-3.2) > 1e-9 {
		t.Errorf("profit factor %v, want 3.2", m.ProfitFactor)
	}
	if !m.NetRealizedPnL.Equal(decimal.NewFromInt(110)) {
		t.Errorf("net pnl %s, want 110", m.NetRealizedPnL)
	}
	if !m.AvgWin.Equal(decimal.NewFromInt(80)) {
		t.Errorf("avg win %s, want 80", m.AvgWin)
	}
	if !m.AvgLoss.Equal(decimal.NewFromInt(25)) {
		t.Errorf("avg loss %s, want 25", m.AvgLoss)
	}
	if !m.Expectancy.Equal(decimal.NewFromFloat(27.5)) {
		t.Errorf("expectancy %s, want 27.5", m.Expectancy)
	}
}

func TestProfitFactorUndefinedWithoutLosses(t *testing.T) {
	trades := []Trade{{RealizedPnL: decimal.NewFromInt(50)}}
	m := Analyze(accountWithHistory(1000, []float64{1000, 1050}), trades, 0)
	if m.ProfitFactor != nil {
		t.Errorf("profit factor %v on loss-free run, want undefined", *m.ProfitFactor)
	}
}
