package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestApplyFillBuy(t *testing.T) {
	a := NewAccount(decimal.NewFromInt(10000))
	order := Order{Side: TradeSideBuy, Size: decimal.NewFromInt(50)}
	fill := a.ApplyFill(order, decimal.NewFromInt(100), decimal.NewFromFloat(0.001))

	if fill.Rejected() {
		t.Fatal("affordable buy rejected")
	}
	if !fill.Commission.Equal(decimal.NewFromInt(5)) {
		t.Errorf("commission %s, want 5", fill.Commission)
	}
	// 10000 - 5000 - 5
	if !a.Cash().Equal(decimal.NewFromInt(4995)) {
		t.Errorf("cash %s, want 4995", a.Cash())
	}
}

func TestApplyFillSell(t *testing.T) {
	a := NewAccount(decimal.NewFromInt(1000))
	order := Order{Side: TradeSideSell, Size: decimal.NewFromInt(10)}
	fill := a.ApplyFill(order, decimal.NewFromInt(200), decimal.NewFromFloat(0.001))

	if fill.Rejected() {
		t.Fatal("sell rejected")
	}
	// 1000 + 2000 - 2
	if !a.Cash().Equal(decimal.NewFromInt(2998)) {
		t.Errorf("cash %s, want 2998", a.Cash())
	}
}

// A buy the account cannot cover is rejected whole; cash never goes
// negative.
func TestApplyFillRejectsOverdraft(t *testing.T) {
	a := NewAccount(decimal.NewFromInt(100))
	order := Order{Side: TradeSideBuy, Size: decimal.NewFromInt(10)}
	fill := a.ApplyFill(order, decimal.NewFromInt(100), decimal.NewFromFloat(0.001))

	if !fill.Rejected() {
		t.Fatal("unaffordable buy filled")
	}
	if !fill.FilledSize.IsZero() || !fill.CashDelta.IsZero() {
		t.Error("rejected fill moved size or cash")
	}
	if !a.Cash().Equal(decimal.NewFromInt(100)) {
		t.Errorf("cash %s changed by rejected fill", a.Cash())
	}
}

func TestMarkToMarket(t *testing.T) {
	a := NewAccount(decimal.NewFromInt(1000))
	a.MarkToMarket(1, decimal.NewFromInt(50), decimal.Zero)
	a.MarkToMarket(2, decimal.NewFromInt(55), decimal.NewFromInt(10))

	h := a.History()
	if len(h) != 2 {
		t.Fatalf("history length %d, want 2", len(h))
	}
	if !h[0].Equity.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("flat equity %s, want 1000", h[0].Equity)
	}
	// cash + 10*55
	if !h[1].Equity.Equal(decimal.NewFromInt(1550)) {
		t.Errorf("marked equity %s, want 1550", h[1].Equity)
	}
	if !a.FinalEquity().Equal(decimal.NewFromInt(1550)) {
		t.Errorf("final equity %s, want 1550", a.FinalEquity())
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	l := NewLedger("TEST")
	if l.Position() != nil || l.Pending() != nil {
		t.Fatal("fresh ledger not flat")
	}

	l.PlaceOrder(Order{Instrument: "TEST", Side: TradeSideBuy, Size: decimal.NewFromInt(5)})
	if l.Pending() == nil {
		t.Fatal("order not pending")
	}
	l.ClearPending()
	if l.Pending() != nil {
		t.Fatal("pending survived clear")
	}

	l.OpenPosition(decimal.NewFromInt(100), decimal.NewFromInt(5),
		decimal.NewFromInt(96), decimal.NewFromInt(106), decimal.NewFromFloat(0.5), 10)
	if l.Position() == nil {
		t.Fatal("position not open")
	}

	trade := l.ClosePosition(decimal.NewFromInt(110), decimal.NewFromFloat(0.55), 20, ExitReasonTarget)
	if l.Position() != nil {
		t.Fatal("position survived close")
	}
	// (110-100)*5 - 0.5 - 0.55
	if !trade.RealizedPnL.Equal(decimal.NewFromFloat(48.95)) {
		t.Errorf("pnl %s, want 48.95", trade.RealizedPnL)
	}
	if len(l.Trades()) != 1 {
		t.Errorf("trades %d, want 1", len(l.Trades()))
	}
}
