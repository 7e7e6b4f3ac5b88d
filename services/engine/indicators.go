package engine

import "math"

// Streaming indicators. Every indicator updates in O(1) per bar and
// reports false until it has seen enough history; callers must treat a
// not-ready value as "no signal".

// EMA is an exponential moving average seeded with the simple average
// of the first period values, then smoothed with alpha = 2/(period+1).
type EMA struct {
	period int
	alpha  float64
	sum    float64
	seen   int
	value  float64
	ready  bool
}

func NewEMA(period int) *EMA {
	return &EMA{period: period, alpha: 2.0 / float64(period+1)}
}

func (e *EMA) Update(v float64) (float64, bool) {
	if !e.ready {
		e.sum += v
		e.seen++
		if e.seen < e.period {
			return 0, false
		}
		e.value = e.sum / float64(e.period)
		e.ready = true
		return e.value, true
	}
	e.value = v*e.alpha + e.value*(1-e.alpha)
	return e.value, true
}

func (e *EMA) Value() (float64, bool) { return e.value, e.ready }

// RSI is Wilder's relative strength index. The first period price
// changes seed the average gain/loss; later changes use Wilder's
// smoothing. When the average loss is zero RSI saturates at 100.
type RSI struct {
	period    int
	prevClose float64
	hasPrev   bool
	changes   int
	avgGain   float64
	avgLoss   float64
	value     float64
	ready     bool
}

func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Update(close float64) (float64, bool) {
	if !r.hasPrev {
		r.prevClose = close
		r.hasPrev = true
		return 0, false
	}
	change := close - r.prevClose
	r.prevClose = close

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if !r.ready {
		r.avgGain += gain
		r.avgLoss += loss
		r.changes++
		if r.changes < r.period {
			return 0, false
		}
		r.avgGain /= float64(r.period)
		r.avgLoss /= float64(r.period)
		r.ready = true
	} else {
		n := float64(r.period)
		r.avgGain = (r.avgGain*(n-1) + gain) / n
		r.avgLoss = (r.avgLoss*(n-1) + loss) / n
	}

	if r.avgLoss == 0 {
		r.value = 100
	} else {
		rs := r.avgGain / r.avgLoss
		r.value = 100 - 100/(1+rs)
	}
	return r.value, true
}

// MACD is the difference of a fast and slow EMA plus an EMA signal
// line over the MACD line. The signal EMA is only fed once the MACD
// line itself is defined, so it warms up after the slow EMA does.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
	line   float64
	sig    float64
	ready  bool
}

func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

// Update returns the MACD line and signal line. Both are reported
// together: until the signal line is defined the indicator is not
// ready.
func (m *MACD) Update(close float64) (line, signal float64, ok bool) {
	f, fok := m.fast.Update(close)
	s, sok := m.slow.Update(close)
	if !fok || !sok {
		return 0, 0, false
	}
	m.line = f - s
	sig, sigok := m.signal.Update(m.line)
	if !sigok {
		return 0, 0, false
	}
	m.sig = sig
	m.ready = true
	return m.line, m.sig, true
}

// ATR is Wilder's average true range. The first period true ranges
// seed the average; later values use Wilder's smoothing
// RMA = (RMA*(N-1) + TR) / N.
type ATR struct {
	period    int
	prevClose float64
	hasPrev   bool
	ranges    int
	value     float64
	ready     bool
}

func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Update(high, low, close float64) (float64, bool) {
	if !a.hasPrev {
		a.prevClose = close
		a.hasPrev = true
		return 0, false
	}
	tr := math.Max(high-low, math.Max(math.Abs(high-a.prevClose), math.Abs(low-a.prevClose)))
	a.prevClose = close

	if !a.ready {
		a.value += tr
		a.ranges++
		if a.ranges < a.period {
			return 0, false
		}
		a.value /= float64(a.period)
		a.ready = true
		return a.value, true
	}
	n := float64(a.period)
	a.value = (a.value*(n-1) + tr) / n
	return a.value, true
}

// IndicatorState holds the per-bar derived values consulted by the
// decision rules. Values still warming up are NaN.
type IndicatorState struct {
	EMAShort   float64
	EMALong    float64
	RSI        float64
	MACDLine   float64
	MACDSignal float64
	ATR        float64
}

// Defined reports whether an indicator value is past its warmup.
func Defined(v float64) bool { return !math.IsNaN(v) }

// Tracker aggregates the full indicator set for one instrument.
type Tracker struct {
	emaShort *EMA
	emaLong  *EMA
	rsi      *RSI
	macd     *MACD
	atr      *ATR
}

func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		emaShort: NewEMA(cfg.ShortPeriod),
		emaLong:  NewEMA(cfg.LongPeriod),
		rsi:      NewRSI(cfg.RSIPeriod),
		macd:     NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignalPeriod),
		atr:      NewATR(cfg.ATRPeriod),
	}
}

// Update feeds one bar to every indicator and returns the resulting
// state. Amortized O(1): no historical closes are rescanned.
func (t *Tracker) Update(bar Bar) IndicatorState {
	close := bar.Close.InexactFloat64()
	high := bar.High.InexactFloat64()
	low := bar.Low.InexactFloat64()

	state := IndicatorState{
		EMAShort:   math.NaN(),
		EMALong:    math.NaN(),
		RSI:        math.NaN(),
		MACDLine:   math.NaN(),
		MACDSignal: math.NaN(),
		ATR:        math.NaN(),
	}
	if v, ok := t.emaShort.Update(close); ok {
		state.EMAShort = v
	}
	if v, ok := t.emaLong.Update(close); ok {
		state.EMALong = v
	}
	if v, ok := t.rsi.Update(close); ok {
		state.RSI = v
	}
	if line, sig, ok := t.macd.Update(close); ok {
		state.MACDLine = line
		state.MACDSignal = sig
	}
	if v, ok := t.atr.Update(high, low, close); ok {
		state.ATR = v
	}
	return state
}
