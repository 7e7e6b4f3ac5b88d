package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Result is the full outcome of one instrument's simulation.
type Result struct {
	Instrument    string
	BarsProcessed int
	Metrics       Metrics
	EquityHistory []EquityPoint
	Trades        []Trade
	Events        []Event
}

// Simulator runs the bar-driven decision loop for one instrument at a
// time. It is strictly sequential and deterministic: the same bars and
// configuration always produce bit-identical results.
type Simulator struct {
	cfg Config
	log *zap.Logger
}

func NewSimulator(cfg Config, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{cfg: cfg, log: logger}
}

// Run validates the bar sequence, then processes it in order. Per bar:
// indicators update first, a pending entry (staged on the previous
// bar) fills at this bar's open, then the decision rules run against
// the refreshed state, and finally the account is marked to market.
// Entries carry one-bar latency; exits triggered by stop, target, or
// trend reversal fill at the deciding bar's close.
func (s *Simulator) Run(instrument string, bars []Bar) (*Result, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateBars(instrument, bars); err != nil {
		return nil, err
	}

	tracker := NewTracker(s.cfg)
	ledger := NewLedger(instrument)
	account := NewAccount(decimal.NewFromFloat(s.cfg.InitialCash))
	commission := decimal.NewFromFloat(s.cfg.CommissionRate)
	events := &EventLog{}

	for _, bar := range bars {
		state := tracker.Update(bar)

		if o := ledger.Pending(); o != nil {
			s.fillEntry(ledger, account, events, *o, bar, commission)
			ledger.ClearPending()
		}

		action := Decide(s.cfg, bar, state, ledger.Position(), ledger.Pending(), account.Cash())
		switch action.Type {
		case ActionEnter:
			order := Order{
				Instrument: instrument,
				Side:       TradeSideBuy,
				Size:       action.Size,
				ATR:        action.ATR,
				PlacedAt:   bar.Timestamp,
			}
			ledger.PlaceOrder(order)
			events.Append(Event{Timestamp: bar.Timestamp, Type: EventOrderPlaced, Instrument: instrument,
				Detail: fmt.Sprintf("buy %s", action.Size.StringFixed(6))})
		case ActionExit:
			s.exitPosition(ledger, account, events, bar, commission, action.Reason)
		}

		account.MarkToMarket(bar.Timestamp, bar.Close, ledger.PositionSize())
	}

	// Liquidate anything still open at the final close so realized
	// trades account for the whole run.
	if ledger.Position() != nil && len(bars) > 0 {
		last := bars[len(bars)-1]
		s.exitPosition(ledger, account, events, last, commission, ExitReasonEndOfData)
		account.remark(last.Close, decimal.Zero)
	}

	metrics := Analyze(account, ledger.Trades(), s.cfg.RiskFreeRate)
	s.log.Info("simulation complete",
		zap.String("instrument", instrument),
		zap.Int("bars", len(bars)),
		zap.Int("trades", len(ledger.Trades())),
		zap.String("final_equity", metrics.FinalEquity.StringFixed(2)),
	)

	return &Result{
		Instrument:    instrument,
		BarsProcessed: len(bars),
		Metrics:       metrics,
		EquityHistory: account.History(),
		Trades:        ledger.Trades(),
		Events:        events.Events,
	}, nil
}

// fillEntry settles a staged entry at the current bar's open. The
// stop and target are anchored to the actual fill price, with the ATR
// captured on the signal bar. A fill the account cannot afford is
// dropped, not fatal: the position simply stays flat.
func (s *Simulator) fillEntry(ledger *Ledger, account *Account, events *EventLog, o Order, bar Bar, commission decimal.Decimal) {
	fill := account.ApplyFill(o, bar.Open, commission)
	if fill.Rejected() {
		s.log.Warn("entry fill rejected: insufficient cash",
			zap.String("instrument", o.Instrument),
			zap.String("size", o.Size.StringFixed(6)),
			zap.String("price", bar.Open.StringFixed(2)),
			zap.String("cash", account.Cash().StringFixed(2)),
		)
		events.Append(Event{Timestamp: bar.Timestamp, Type: EventOrderRejected, Instrument: o.Instrument,
			Detail: "insufficient cash"})
		return
	}
	events.Append(Event{Timestamp: bar.Timestamp, Type: EventOrderFilled, Instrument: o.Instrument,
		Detail: fmt.Sprintf("buy %s @ %s", fill.FilledSize.StringFixed(6), fill.FillPrice.StringFixed(2))})
	stop, target := RiskLevels(s.cfg, fill.FillPrice, o.ATR)
	ledger.OpenPosition(fill.FillPrice, fill.FilledSize, stop, target, fill.Commission, bar.Timestamp)
	events.Append(Event{Timestamp: bar.Timestamp, Type: EventPositionOpened, Instrument: o.Instrument,
		Detail: fmt.Sprintf("%s @ %s stop %s target %s",
			fill.FilledSize.StringFixed(6), fill.FillPrice.StringFixed(2),
			stop.StringFixed(2), target.StringFixed(2))})
}

func (s *Simulator) exitPosition(ledger *Ledger, account *Account, events *EventLog, bar Bar, commission decimal.Decimal, reason string) {
	pos := ledger.Position()
	if pos == nil {
		return
	}
	order := Order{Instrument: pos.Instrument, Side: TradeSideSell, Size: pos.Size, PlacedAt: bar.Timestamp}
	fill := account.ApplyFill(order, bar.Close, commission)
	trade := ledger.ClosePosition(fill.FillPrice, fill.Commission, bar.Timestamp, reason)
	events.Append(Event{Timestamp: bar.Timestamp, Type: EventPositionClosed, Instrument: pos.Instrument,
		Detail: fmt.Sprintf("%s pnl %s", reason, trade.RealizedPnL.StringFixed(2))})
}
