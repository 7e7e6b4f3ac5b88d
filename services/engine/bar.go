package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one period's OHLCV record for an instrument. Timestamps are
// milliseconds since epoch, UTC, one bar per trading day. Bars are
// immutable once ingested.
type Bar struct {
	Timestamp int64
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Time returns the bar timestamp as UTC time.
func (b Bar) Time() time.Time { return time.UnixMilli(b.Timestamp).UTC() }

// DataValidationError reports malformed input data. A sequence that
// fails validation is refused before simulation starts.
type DataValidationError struct {
	Instrument string
	BarIndex   int
	Reason     string
}

func (e *DataValidationError) Error() string {
	return fmt.Sprintf("%s: bad bar at index %d: %s", e.Instrument, e.BarIndex, e.Reason)
}

// ValidateBars refuses sequences with non-monotonic or duplicate
// timestamps, missing or non-positive price fields, inverted high/low,
// or negative volume.
func ValidateBars(instrument string, bars []Bar) error {
	for i, b := range bars {
		if b.Open.LessThanOrEqual(decimal.Zero) || b.High.LessThanOrEqual(decimal.Zero) ||
			b.Low.LessThanOrEqual(decimal.Zero) || b.Close.LessThanOrEqual(decimal.Zero) {
			return &DataValidationError{Instrument: instrument, BarIndex: i, Reason: "missing or non-positive price field"}
		}
		if b.Volume.IsNegative() {
			return &DataValidationError{Instrument: instrument, BarIndex: i, Reason: "negative volume"}
		}
		if b.Low.GreaterThan(b.High) {
			return &DataValidationError{Instrument: instrument, BarIndex: i, Reason: "low above high"}
		}
		if i == 0 {
			continue
		}
		prev := bars[i-1].Timestamp
		switch {
		case b.Timestamp == prev:
			return &DataValidationError{Instrument: instrument, BarIndex: i, Reason: fmt.Sprintf("duplicate timestamp %s", b.Time().Format("2006-01-02"))}
		case b.Timestamp < prev:
			return &DataValidationError{Instrument: instrument, BarIndex: i, Reason: fmt.Sprintf("non-monotonic timestamp %s", b.Time().Format("2006-01-02"))}
		}
	}
	return nil
}
