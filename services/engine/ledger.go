package engine

import "github.com/shopspring/decimal"

type TradeSide int

const (
	TradeSideBuy TradeSide = iota
	TradeSideSell
)

func (s TradeSide) String() string {
	if s == TradeSideBuy {
		return "buy"
	}
	return "sell"
}

// Order is a request handed to the broker simulator. Buy orders carry
// the ATR observed on the signal bar so the stop and target can be
// anchored to the actual fill price one bar later.
type Order struct {
	Instrument string
	Side       TradeSide
	Size       decimal.Decimal
	ATR        decimal.Decimal
	PlacedAt   int64
}

// Position is an open long. Stop and Target are only meaningful while
// the position exists; a closed position is represented by absence.
type Position struct {
	Instrument string
	Size       decimal.Decimal
	EntryPrice decimal.Decimal
	Stop       decimal.Decimal
	Target     decimal.Decimal
	EntryTime  int64
	entryFee   decimal.Decimal
}

// Trade is one completed round trip. RealizedPnL is net of both
// commissions.
type Trade struct {
	Instrument  string
	EntryTime   int64
	ExitTime    int64
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	Size        decimal.Decimal
	RealizedPnL decimal.Decimal
	ExitReason  string
}

// Ledger tracks one instrument's position, in-flight order, and
// realized trades. At most one pending order exists at a time: new
// decisions are suppressed while one is outstanding, which is what
// gives entries their one-bar latency.
type Ledger struct {
	instrument string
	position   *Position
	pending    *Order
	trades     []Trade
}

func NewLedger(instrument string) *Ledger {
	return &Ledger{instrument: instrument}
}

func (l *Ledger) Position() *Position { return l.position }
func (l *Ledger) Pending() *Order     { return l.pending }
func (l *Ledger) Trades() []Trade     { return l.trades }

// PositionSize is the current signed quantity, zero when flat.
func (l *Ledger) PositionSize() decimal.Decimal {
	if l.position == nil {
		return decimal.Zero
	}
	return l.position.Size
}

func (l *Ledger) PlaceOrder(o Order) {
	l.pending = &o
}

func (l *Ledger) ClearPending() {
	l.pending = nil
}

// OpenPosition records the filled entry with its active risk levels.
func (l *Ledger) OpenPosition(fillPrice, fillSize, stop, target, entryFee decimal.Decimal, ts int64) {
	l.position = &Position{
		Instrument: l.instrument,
		Size:       fillSize,
		EntryPrice: fillPrice,
		Stop:       stop,
		Target:     target,
		EntryTime:  ts,
		entryFee:   entryFee,
	}
}

// ClosePosition realizes the open position at exitPrice, clearing the
// stop and target with it so no stale risk thresholds survive into the
// next entry.
func (l *Ledger) ClosePosition(exitPrice, exitFee decimal.Decimal, ts int64, reason string) Trade {
	pos := l.position
	pnl := exitPrice.Sub(pos.EntryPrice).Mul(pos.Size).Sub(pos.entryFee).Sub(exitFee)
	trade := Trade{
		Instrument:  pos.Instrument,
		EntryTime:   pos.EntryTime,
		ExitTime:    ts,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		Size:        pos.Size,
		RealizedPnL: pnl,
		ExitReason:  reason,
	}
	l.trades = append(l.trades, trade)
	l.position = nil
	return trade
}
