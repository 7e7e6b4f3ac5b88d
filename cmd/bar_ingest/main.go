// Command bar_ingest loads daily bars from a CSV file into ClickHouse so
// the evaluation server can query them.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"trendeval/services/barstore"
	"trendeval/services/marketdata"
)

func main() {
	csvPath := flag.String("csv", "", "Path to OHLCV CSV (date,open,high,low,close,volume)")
	instrument := flag.String("instrument", "", "Instrument identifier to store bars under")
	chAddr := flag.String("ch-addr", "localhost:9000", "ClickHouse native address")
	chDB := flag.String("ch-db", "trendeval", "ClickHouse database")
	chUser := flag.String("ch-user", "default", "ClickHouse user")
	chPass := flag.String("ch-pass", "", "ClickHouse password")
	chTable := flag.String("ch-table", "daily_bars", "ClickHouse bars table")
	flag.Parse()

	if *csvPath == "" || *instrument == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	bars, err := marketdata.LoadCSV(*csvPath)
	if err != nil {
		logger.Fatal("failed to load bars", zap.String("path", *csvPath), zap.Error(err))
	}

	store, err := barstore.New(barstore.Options{
		Addr:     *chAddr,
		Database: *chDB,
		Username: *chUser,
		Password: *chPass,
		Table:    *chTable,
	})
	if err != nil {
		logger.Fatal("failed to connect to ClickHouse", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}
	if err := store.InsertBars(ctx, *instrument, bars); err != nil {
		logger.Fatal("failed to insert bars", zap.Error(err))
	}

	logger.Info("bars ingested",
		zap.String("instrument", *instrument),
		zap.Int("count", len(bars)),
	)
}
