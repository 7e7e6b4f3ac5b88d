package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

const indicatorTolerance = 1e-9

// Array-based reference implementations. The streaming indicators must
// agree with these at every bar to within 1e-9.

func refEMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	alpha := 2.0 / float64(period+1)
	sum := 0.0
	for i, v := range values {
		out[i] = math.NaN()
		if i < period {
			sum += v
			if i == period-1 {
				out[i] = sum / float64(period)
			}
			continue
		}
		out[i] = v*alpha + out[i-1]*(1-alpha)
	}
	return out
}

func refRSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		if i <= period {
			avgGain += gain
			avgLoss += loss
			if i < period {
				continue
			}
			avgGain /= float64(period)
			avgLoss /= float64(period)
		} else {
			n := float64(period)
			avgGain = (avgGain*(n-1) + gain) / n
			avgLoss = (avgLoss*(n-1) + loss) / n
		}
		if avgLoss == 0 {
			out[i] = 100
		} else {
			out[i] = 100 - 100/(1+avgGain/avgLoss)
		}
	}
	return out
}

func refMACD(closes []float64, fast, slow, signalPeriod int) (line, signal []float64) {
	fastEMA := refEMA(closes, fast)
	slowEMA := refEMA(closes, slow)
	line = make([]float64, len(closes))
	signal = make([]float64, len(closes))
	alpha := 2.0 / float64(signalPeriod+1)
	sum, defined, prevSignal := 0.0, 0, 0.0
	for i := range closes {
		line[i] = math.NaN()
		signal[i] = math.NaN()
		if math.IsNaN(fastEMA[i]) || math.IsNaN(slowEMA[i]) {
			continue
		}
		// Both lines are reported together, once the signal is seeded.
		l := fastEMA[i] - slowEMA[i]
		if defined < signalPeriod {
			sum += l
			defined++
			if defined < signalPeriod {
				continue
			}
			prevSignal = sum / float64(signalPeriod)
		} else {
			prevSignal = l*alpha + prevSignal*(1-alpha)
		}
		line[i] = l
		signal[i] = prevSignal
	}
	return line, signal
}

func refATR(bars []Bar, period int) []float64 {
	out := make([]float64, len(bars))
	for i := range out {
		out[i] = math.NaN()
	}
	var sum float64
	for i := 1; i < len(bars); i++ {
		high := bars[i].High.InexactFloat64()
		low := bars[i].Low.InexactFloat64()
		prev := bars[i-1].Close.InexactFloat64()
		tr := math.Max(high-low, math.Max(math.Abs(high-prev), math.Abs(low-prev)))
		if i <= period {
			sum += tr
			if i < period {
				continue
			}
			out[i] = sum / float64(period)
		} else {
			out[i] = (out[i-1]*(float64(period)-1) + tr) / float64(period)
		}
	}
	return out
}

func randomBars(n int, seed int64) []Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]Bar, n)
	price := 100.0
	for i := range bars {
		price *= 1 + (rng.Float64()-0.48)*0.03
		high := price * (1 + rng.Float64()*0.01)
		low := price * (1 - rng.Float64()*0.01)
		bars[i] = Bar{
			Timestamp: int64(i) * millisPerCalendarDay,
			Open:      decimal.NewFromFloat(price * 0.999),
			High:      decimal.NewFromFloat(high),
			Low:       decimal.NewFromFloat(low),
			Close:     decimal.NewFromFloat(price),
			Volume:    decimal.NewFromInt(1000),
		}
	}
	return bars
}

func closeTo(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) == math.IsNaN(b)
	}
	return math.Abs(a-b) <= indicatorTolerance
}

func TestTrackerMatchesBatchRecompute(t *testing.T) {
	cfg := DefaultConfig()
	bars := randomBars(300, 7)
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close.InexactFloat64()
	}

	emaShort := refEMA(closes, cfg.ShortPeriod)
	emaLong := refEMA(closes, cfg.LongPeriod)
	rsi := refRSI(closes, cfg.RSIPeriod)
	macdLine, macdSignal := refMACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignalPeriod)
	atr := refATR(bars, cfg.ATRPeriod)

	tracker := NewTracker(cfg)
	for i, bar := range bars {
		state := tracker.Update(bar)
		if !closeTo(state.EMAShort, emaShort[i]) {
			t.Fatalf("bar %d: ema short %.12f != %.12f", i, state.EMAShort, emaShort[i])
		}
		if !closeTo(state.EMALong, emaLong[i]) {
			t.Fatalf("bar %d: ema long %.12f != %.12f", i, state.EMALong, emaLong[i])
		}
		if !closeTo(state.RSI, rsi[i]) {
			t.Fatalf("bar %d: rsi %.12f != %.12f", i, state.RSI, rsi[i])
		}
		if !closeTo(state.MACDLine, macdLine[i]) {
			t.Fatalf("bar %d: macd line %.12f != %.12f", i, state.MACDLine, macdLine[i])
		}
		if !closeTo(state.MACDSignal, macdSignal[i]) {
			t.Fatalf("bar %d: macd signal %.12f != %.12f", i, state.MACDSignal, macdSignal[i])
		}
		if !closeTo(state.ATR, atr[i]) {
			t.Fatalf("bar %d: atr %.12f != %.12f", i, state.ATR, atr[i])
		}
	}
}

func TestEMAWarmup(t *testing.T) {
	ema := NewEMA(5)
	for i := 0; i < 4; i++ {
		if _, ok := ema.Update(float64(10 + i)); ok {
			t.Fatalf("ema defined after %d values", i+1)
		}
	}
	v, ok := ema.Update(14)
	if !ok {
		t.Fatal("ema undefined after period values")
	}
	if v != 12 { // SMA of 10..14
		t.Fatalf("seed value %v, want 12", v)
	}
}

func TestRSISaturatesWithoutLosses(t *testing.T) {
	rsi := NewRSI(3)
	var v float64
	var ok bool
	for i := 0; i < 10; i++ {
		v, ok = rsi.Update(float64(100 + i))
	}
	if !ok {
		t.Fatal("rsi undefined after warmup")
	}
	if v != 100 {
		t.Fatalf("rsi %v on gain-only series, want 100", v)
	}
}

func TestMACDUndefinedUntilSignalSeeded(t *testing.T) {
	m := NewMACD(3, 6, 3)
	defined := -1
	for i := 0; i < 20; i++ {
		if _, _, ok := m.Update(float64(100 + i)); ok && defined < 0 {
			defined = i
		}
	}
	// Slow EMA seeds at bar 6, signal needs 3 MACD values.
	if defined != 7 {
		t.Fatalf("macd first defined at bar %d, want 7", defined)
	}
}
