// Package arrowexport serializes evaluation results to Arrow IPC for
// columnar consumers (notebooks, analytics pipelines).
package arrowexport

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"trendeval/services/engine"
)

var equitySchema = arrow.NewSchema([]arrow.Field{
	{Name: "instrument", Type: arrow.BinaryTypes.String},
	{Name: "ts_ms", Type: arrow.PrimitiveTypes.Int64},
	{Name: "equity", Type: arrow.PrimitiveTypes.Float64},
}, nil)

var tradeSchema = arrow.NewSchema([]arrow.Field{
	{Name: "instrument", Type: arrow.BinaryTypes.String},
	{Name: "entry_ts_ms", Type: arrow.PrimitiveTypes.Int64},
	{Name: "exit_ts_ms", Type: arrow.PrimitiveTypes.Int64},
	{Name: "entry_price", Type: arrow.PrimitiveTypes.Float64},
	{Name: "exit_price", Type: arrow.PrimitiveTypes.Float64},
	{Name: "size", Type: arrow.PrimitiveTypes.Float64},
	{Name: "realized_pnl", Type: arrow.PrimitiveTypes.Float64},
	{Name: "exit_reason", Type: arrow.BinaryTypes.String},
}, nil)

// EncodeEquityCurve writes a result's equity history as one Arrow IPC
// stream.
func EncodeEquityCurve(res *engine.Result) ([]byte, error) {
	if res == nil || len(res.EquityHistory) == 0 {
		return nil, fmt.Errorf("no equity points to encode")
	}
	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, equitySchema)
	defer b.Release()

	for _, p := range res.EquityHistory {
		b.Field(0).(*array.StringBuilder).Append(res.Instrument)
		b.Field(1).(*array.Int64Builder).Append(p.Timestamp)
		b.Field(2).(*array.Float64Builder).Append(p.Equity.InexactFloat64())
	}
	return writeRecord(equitySchema, b)
}

// EncodeTrades writes a result's realized trades as one Arrow IPC
// stream.
func EncodeTrades(res *engine.Result) ([]byte, error) {
	if res == nil || len(res.Trades) == 0 {
		return nil, fmt.Errorf("no trades to encode")
	}
	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, tradeSchema)
	defer b.Release()

	for _, t := range res.Trades {
		b.Field(0).(*array.StringBuilder).Append(t.Instrument)
		b.Field(1).(*array.Int64Builder).Append(t.EntryTime)
		b.Field(2).(*array.Int64Builder).Append(t.ExitTime)
		b.Field(3).(*array.Float64Builder).Append(t.EntryPrice.InexactFloat64())
		b.Field(4).(*array.Float64Builder).Append(t.ExitPrice.InexactFloat64())
		b.Field(5).(*array.Float64Builder).Append(t.Size.InexactFloat64())
		b.Field(6).(*array.Float64Builder).Append(t.RealizedPnL.InexactFloat64())
		b.Field(7).(*array.StringBuilder).Append(t.ExitReason)
	}
	return writeRecord(tradeSchema, b)
}

func writeRecord(schema *arrow.Schema, b *array.RecordBuilder) ([]byte, error) {
	record := b.NewRecord()
	defer record.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	if err := w.Write(record); err != nil {
		w.Close()
		return nil, fmt.Errorf("write arrow record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close arrow writer: %w", err)
	}
	return buf.Bytes(), nil
}
