// Package barstore persists and serves daily bars from ClickHouse.
package barstore

import (
	"context"
	"fmt"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"trendeval/services/engine"
)

// Options configure the ClickHouse connection.
type Options struct {
	Addr     string
	Database string
	Username string
	Password string
	Table    string
}

func (o Options) withDefaults() Options {
	if o.Database == "" {
		o.Database = "trendeval"
	}
	if o.Table == "" {
		o.Table = "daily_bars"
	}
	return o
}

// Store wraps a native-protocol ClickHouse connection.
type Store struct {
	conn  driver.Conn
	table string
}

func New(opts Options) (*Store, error) {
	opts = opts.withDefaults()
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	return &Store{conn: conn, table: opts.Database + "." + opts.Table}, nil
}

func (s *Store) Close() error { return s.conn.Close() }

// EnsureSchema creates the bar table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			instrument LowCardinality(String),
			ts_ms      Int64,
			open       Float64,
			high       Float64,
			low        Float64,
			close      Float64,
			volume     Float64
		) ENGINE = ReplacingMergeTree
		ORDER BY (instrument, ts_ms)`, s.table)
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertBars writes one instrument's bars in a single batch.
func (s *Store) InsertBars(ctx context.Context, instrument string, bars []engine.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(
		"INSERT INTO %s (instrument, ts_ms, open, high, low, close, volume)", s.table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, b := range bars {
		err := batch.Append(
			instrument,
			b.Timestamp,
			b.Open.InexactFloat64(),
			b.High.InexactFloat64(),
			b.Low.InexactFloat64(),
			b.Close.InexactFloat64(),
			b.Volume.InexactFloat64(),
		)
		if err != nil {
			return fmt.Errorf("append bar: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// QueryBars loads an instrument's bars in timestamp order over
// [from, to). Zero bounds mean unbounded.
func (s *Store) QueryBars(ctx context.Context, instrument string, from, to int64) ([]engine.Bar, error) {
	if to == 0 {
		to = int64(^uint64(0) >> 1)
	}
	query := fmt.Sprintf(`
		SELECT ts_ms, open, high, low, close, volume
		FROM %s FINAL
		WHERE instrument = ? AND ts_ms >= ? AND ts_ms < ?
		ORDER BY ts_ms`, s.table)
	rows, err := s.conn.Query(ctx, query, instrument, from, to)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []engine.Bar
	for rows.Next() {
		var (
			ts                             int64
			open, high, low, close, volume float64
		)
		if err := rows.Scan(&ts, &open, &high, &low, &close, &volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, engine.Bar{
			Timestamp: ts,
			Open:      decimal.NewFromFloat(open),
			High:      decimal.NewFromFloat(high),
			Low:       decimal.NewFromFloat(low),
			Close:     decimal.NewFromFloat(close),
			Volume:    decimal.NewFromFloat(volume),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}
	return bars, nil
}
