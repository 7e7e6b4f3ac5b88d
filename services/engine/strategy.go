package engine

import "github.com/shopspring/decimal"

type ActionType int

const (
	ActionNone ActionType = iota
	ActionEnter
	ActionExit
)

// Action is what the decision rules emit for one bar: nothing, a sized
// entry request, or a full exit with its reason.
type Action struct {
	Type   ActionType
	Size   decimal.Decimal
	ATR    decimal.Decimal
	Reason string
}

// Exit reasons recorded on trades.
const (
	ExitReasonStop      = "stop"
	ExitReasonTarget    = "target"
	ExitReasonReversal  = "reversal"
	ExitReasonEndOfData = "end_of_data"
)

var none = Action{Type: ActionNone}

// Decide is the pure per-bar decision function. It never mutates its
// inputs; the simulator owns all state transitions.
//
// Indicator comparisons are strict: exactly equal values are no
// signal. Stop and target checks are inclusive so exits fire at or
// beyond the threshold.
func Decide(cfg Config, bar Bar, state IndicatorState, pos *Position, pending *Order, cash decimal.Decimal) Action {
	// One order in flight at a time per instrument.
	if pending != nil {
		return none
	}

	if pos == nil {
		return decideEntry(cfg, bar, state, cash)
	}

	close := bar.Close
	switch {
	case close.LessThanOrEqual(pos.Stop):
		return Action{Type: ActionExit, Size: pos.Size, Reason: ExitReasonStop}
	case close.GreaterThanOrEqual(pos.Target):
		return Action{Type: ActionExit, Size: pos.Size, Reason: ExitReasonTarget}
	}
	// Trend reversal overrides the profit target.
	if Defined(state.EMAShort) && Defined(state.EMALong) && state.EMAShort < state.EMALong {
		return Action{Type: ActionExit, Size: pos.Size, Reason: ExitReasonReversal}
	}
	return none
}

func decideEntry(cfg Config, bar Bar, state IndicatorState, cash decimal.Decimal) Action {
	if !Defined(state.EMAShort) || !Defined(state.EMALong) ||
		!Defined(state.RSI) || !Defined(state.MACDLine) || !Defined(state.MACDSignal) {
		return none
	}
	if cfg.StopMode == StopModeATR && !Defined(state.ATR) {
		return none
	}
	if !(state.EMAShort > state.EMALong) ||
		!(state.RSI > cfg.EntryRSIThreshold) ||
		!(state.MACDLine > state.MACDSignal) {
		return none
	}

	entry := bar.Close
	// ATR is only consulted in ATR stop mode; in fraction mode it may
	// still be NaN here, which decimal cannot represent.
	atr := decimal.Zero
	if cfg.StopMode == StopModeATR {
		atr = decimal.NewFromFloat(state.ATR)
	}
	stop, _ := RiskLevels(cfg, entry, atr)
	size := PositionSize(cfg, cash, entry, stop)
	if size.LessThanOrEqual(decimal.Zero) {
		return none
	}
	return Action{Type: ActionEnter, Size: size, ATR: atr}
}

// RiskLevels derives the stop and target for a long entered at entry.
// In ATR mode the levels are ATR multiples away from the entry; in
// fraction mode they are fixed fractions of it.
func RiskLevels(cfg Config, entry, atr decimal.Decimal) (stop, target decimal.Decimal) {
	if cfg.StopMode == StopModeATR {
		stop = entry.Sub(atr.Mul(decimal.NewFromFloat(cfg.StopATRMultiplier)))
		target = entry.Add(atr.Mul(decimal.NewFromFloat(cfg.TargetATRMultiplier)))
		return stop, target
	}
	stop = entry.Mul(decimal.NewFromFloat(cfg.StopLossFraction))
	target = entry.Mul(decimal.NewFromFloat(cfg.TakeProfitFraction))
	return stop, target
}

// PositionSize risks cash*riskFraction over the entry-to-stop
// distance, floored at zero and capped so the notional never exceeds
// available cash including the entry commission.
func PositionSize(cfg Config, cash, entry, stop decimal.Decimal) decimal.Decimal {
	dist := entry.Sub(stop)
	if dist.LessThanOrEqual(decimal.Zero) || entry.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	size := cash.Mul(decimal.NewFromFloat(cfg.RiskFraction)).Div(dist)
	if size.IsNegative() {
		return decimal.Zero
	}
	maxAffordable := cash.Div(entry.Mul(decimal.NewFromFloat(1 + cfg.CommissionRate)))
	if size.GreaterThan(maxAffordable) {
		size = maxAffordable
	}
	return size
}
