package engine

import "github.com/shopspring/decimal"

// FillResult reports what the broker simulator actually executed. A
// rejected fill has FilledSize zero and no cash movement.
type FillResult struct {
	FilledSize decimal.Decimal
	FillPrice  decimal.Decimal
	CashDelta  decimal.Decimal
	Commission decimal.Decimal
}

func (f FillResult) Rejected() bool { return f.FilledSize.IsZero() }

// EquityPoint is one mark-to-market observation.
type EquityPoint struct {
	Timestamp int64
	Equity    decimal.Decimal
}

// Account is the per-run broker account: cash plus the equity curve.
// It is mutated only by fills and by the once-per-bar mark-to-market.
type Account struct {
	initial decimal.Decimal
	cash    decimal.Decimal
	history []EquityPoint
}

func NewAccount(initialCash decimal.Decimal) *Account {
	return &Account{initial: initialCash, cash: initialCash}
}

func (a *Account) Cash() decimal.Decimal        { return a.cash }
func (a *Account) InitialCash() decimal.Decimal { return a.initial }
func (a *Account) History() []EquityPoint       { return a.history }

// FinalEquity is the last marked equity, or initial cash before any
// bar has been processed.
func (a *Account) FinalEquity() decimal.Decimal {
	if len(a.history) == 0 {
		return a.initial
	}
	return a.history[len(a.history)-1].Equity
}

// ApplyFill settles an order at fillPrice with a proportional
// commission. Buys that would drive cash negative are rejected whole:
// cash can never go below zero in this model.
func (a *Account) ApplyFill(o Order, fillPrice, commissionRate decimal.Decimal) FillResult {
	notional := o.Size.Mul(fillPrice)
	commission := notional.Mul(commissionRate)

	if o.Side == TradeSideBuy {
		delta := notional.Add(commission).Neg()
		if a.cash.Add(delta).IsNegative() {
			return FillResult{FillPrice: fillPrice}
		}
		a.cash = a.cash.Add(delta)
		return FillResult{FilledSize: o.Size, FillPrice: fillPrice, CashDelta: delta, Commission: commission}
	}

	delta := notional.Sub(commission)
	a.cash = a.cash.Add(delta)
	return FillResult{FilledSize: o.Size, FillPrice: fillPrice, CashDelta: delta, Commission: commission}
}

// MarkToMarket appends one equity observation for the bar:
// equity = cash + position size * close. Called exactly once per bar,
// flat bars included.
func (a *Account) MarkToMarket(ts int64, close, positionSize decimal.Decimal) EquityPoint {
	p := EquityPoint{Timestamp: ts, Equity: a.cash.Add(positionSize.Mul(close))}
	a.history = append(a.history, p)
	return p
}

// remark replaces the latest equity observation after an end-of-data
// liquidation so the curve stays one point per bar.
func (a *Account) remark(close, positionSize decimal.Decimal) {
	if len(a.history) == 0 {
		return
	}
	last := &a.history[len(a.history)-1]
	last.Equity = a.cash.Add(positionSize.Mul(close))
}
