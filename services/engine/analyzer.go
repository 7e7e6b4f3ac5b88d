package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

// Metrics are derived once, at run end, from the equity curve and the
// realized trade list. Ratios that are undefined for the input (zero
// elapsed time, zero variance, no losing trades) are nil pointers,
// never fabricated zeros.
type Metrics struct {
	FinalEquity        decimal.Decimal
	PnL                decimal.Decimal
	CAGRPercent        *float64
	SharpeRatio        *float64
	MaxDrawdownPercent float64

	TotalTrades    int
	Wins           int
	Losses         int
	WinRatePercent float64
	ProfitFactor   *float64
	NetRealizedPnL decimal.Decimal
	AvgWin         decimal.Decimal
	AvgLoss        decimal.Decimal
	Expectancy     decimal.Decimal
}

const (
	tradingDaysPerYear   = 252
	calendarDaysPerYear  = 365
	millisPerCalendarDay = 24 * 60 * 60 * 1000
)

// Analyze computes the performance metrics for one completed run.
// riskFreeRate is a daily rate subtracted from daily returns before
// the Sharpe ratio is taken.
func Analyze(account *Account, trades []Trade, riskFreeRate float64) Metrics {
	history := account.History()
	initial := account.InitialCash()

	m := Metrics{
		FinalEquity: account.FinalEquity(),
	}
	m.PnL = m.FinalEquity.Sub(initial)
	m.CAGRPercent = cagrPercent(history, initial, m.FinalEquity)
	m.SharpeRatio = sharpeRatio(history, riskFreeRate)
	m.MaxDrawdownPercent = maxDrawdownPercent(history)
	m.tradeStats(trades)
	return m
}

func cagrPercent(history []EquityPoint, initial, final decimal.Decimal) *float64 {
	if len(history) < 2 || initial.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	elapsedMs := history[len(history)-1].Timestamp - history[0].Timestamp
	days := float64(elapsedMs) / millisPerCalendarDay
	if days <= 0 {
		return nil
	}
	growth := final.InexactFloat64() / initial.InexactFloat64()
	if growth <= 0 {
		return nil
	}
	v := (math.Pow(growth, calendarDaysPerYear/days) - 1) * 100
	return &v
}

func sharpeRatio(history []EquityPoint, riskFreeRate float64) *float64 {
	if len(history) < 3 {
		return nil
	}
	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Equity.InexactFloat64()
		if prev == 0 {
			return nil
		}
		r := history[i].Equity.InexactFloat64()/prev - 1
		returns = append(returns, r-riskFreeRate)
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return nil
	}
	v := mean / stddev * math.Sqrt(tradingDaysPerYear)
	return &v
}

func maxDrawdownPercent(history []EquityPoint) float64 {
	var peak, maxDD float64
	for i, p := range history {
		eq := p.Equity.InexactFloat64()
		if i == 0 || eq > peak {
			peak = eq
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - eq) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD * 100
}

func (m *Metrics) tradeStats(trades []Trade) {
	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}
	var grossProfit, grossLoss decimal.Decimal
	for _, t := range trades {
		m.NetRealizedPnL = m.NetRealizedPnL.Add(t.RealizedPnL)
		if t.RealizedPnL.GreaterThan(decimal.Zero) {
			m.Wins++
			grossProfit = grossProfit.Add(t.RealizedPnL)
		} else {
			m.Losses++
			grossLoss = grossLoss.Add(t.RealizedPnL.Abs())
		}
	}
	m.WinRatePercent = float64(m.Wins) / float64(m.TotalTrades) * 100
	if grossLoss.GreaterThan(decimal.Zero) {
		pf := grossProfit.InexactFloat64() / grossLoss.InexactFloat64()
		m.ProfitFactor = &pf
	}
	if m.Wins > 0 {
		m.AvgWin = grossProfit.Div(decimal.NewFromInt(int64(m.Wins)))
	}
	if m.Losses > 0 {
		m.AvgLoss = grossLoss.Div(decimal.NewFromInt(int64(m.Losses)))
	}
	m.Expectancy = m.NetRealizedPnL.Div(decimal.NewFromInt(int64(m.TotalTrades)))
}
