// Command trendeval evaluates the trend-following strategy over a CSV of
// daily bars and prints a performance summary.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"trendeval/services/arrowexport"
	"trendeval/services/engine"
	"trendeval/services/marketdata"
	"trendeval/services/report"
)

func main() {
	csvPath := flag.String("csv", "", "Path to OHLCV CSV (date,open,high,low,close,volume)")
	configPath := flag.String("config", "", "Path to YAML strategy config; defaults apply if empty")
	instrument := flag.String("instrument", "UNKNOWN", "Instrument identifier")
	equityOut := flag.String("equity-arrow", "", "Optional path for equity curve as Arrow IPC")
	tradesOut := flag.String("trades-arrow", "", "Optional path for trades as Arrow IPC")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg := engine.DefaultConfig()
	if *configPath != "" {
		cfg, err = engine.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
		}
	}

	bars, err := marketdata.LoadCSV(*csvPath)
	if err != nil {
		logger.Fatal("failed to load bars", zap.String("path", *csvPath), zap.Error(err))
	}
	logger.Info("loaded bars",
		zap.String("instrument", *instrument),
		zap.Int("count", len(bars)),
	)

	sim := engine.NewSimulator(cfg, logger)
	result, err := sim.Run(*instrument, bars)
	if err != nil {
		logger.Fatal("evaluation failed", zap.Error(err))
	}

	report.Write(os.Stdout, result)

	if *equityOut != "" {
		if err := writeArrow(*equityOut, result, arrowexport.EncodeEquityCurve); err != nil {
			logger.Fatal("failed to write equity curve", zap.Error(err))
		}
		fmt.Printf("\nEquity curve written to %s\n", *equityOut)
	}
	if *tradesOut != "" {
		if err := writeArrow(*tradesOut, result, arrowexport.EncodeTrades); err != nil {
			logger.Fatal("failed to write trades", zap.Error(err))
		}
		fmt.Printf("Trades written to %s\n", *tradesOut)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func writeArrow(path string, res *engine.Result, encode func(*engine.Result) ([]byte, error)) error {
	data, err := encode(res)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
