// Command server exposes the strategy evaluator over a REST API backed by
// ClickHouse bar storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trendeval/services/arrowexport"
	"trendeval/services/barstore"
	"trendeval/services/engine"
)

// EvaluateRequest is the body of POST /api/v1/evaluate.
type EvaluateRequest struct {
	Instruments []string `json:"instruments" binding:"required"`
	FromMs      int64    `json:"from_ms"`
	ToMs        int64    `json:"to_ms"`
}

// EvaluatorService ties the bar store and the batch runner together and
// keeps finished jobs in memory for retrieval.
type EvaluatorService struct {
	cfg    engine.Config
	store  *barstore.Store
	runner *engine.Runner
	logger *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*engine.BatchResult
}

func NewEvaluatorService(cfg engine.Config, store *barstore.Store, workers int, logger *zap.Logger) *EvaluatorService {
	return &EvaluatorService{
		cfg:    cfg,
		store:  store,
		runner: engine.NewRunner(cfg, workers, logger),
		logger: logger,
		jobs:   make(map[string]*engine.BatchResult),
	}
}

func (s *EvaluatorService) setupRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/evaluate", s.handleEvaluate)
		api.GET("/evaluations/:job_id", s.handleGetEvaluation)
		api.GET("/evaluations/:job_id/equity.arrow", s.handleGetEquityArrow)
		api.GET("/evaluations/:job_id/trades.arrow", s.handleGetTradesArrow)
		api.GET("/health", s.handleHealth)
	}
}

func (s *EvaluatorService) handleEvaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ToMs == 0 {
		req.ToMs = time.Now().UnixMilli()
	}

	start := time.Now()
	ctx := c.Request.Context()

	series := make([]engine.InstrumentSeries, 0, len(req.Instruments))
	for _, instrument := range req.Instruments {
		bars, err := s.store.QueryBars(ctx, instrument, req.FromMs, req.ToMs)
		if err != nil {
			s.logger.Error("failed to load bars",
				zap.String("instrument", instrument),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		series = append(series, engine.InstrumentSeries{Instrument: instrument, Bars: bars})
	}

	batch := s.runner.RunBatch(series)

	s.mu.Lock()
	s.jobs[batch.Manifest.JobID] = batch
	s.mu.Unlock()

	s.logger.Info("evaluation completed",
		zap.String("job_id", batch.Manifest.JobID),
		zap.Int("instruments", len(req.Instruments)),
		zap.Int("failed", len(batch.Errors)),
		zap.Duration("elapsed", time.Since(start)),
	)

	c.JSON(http.StatusOK, batchSummary(batch))
}

func (s *EvaluatorService) handleGetEvaluation(c *gin.Context) {
	batch, ok := s.lookup(c.Param("job_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job id"})
		return
	}
	c.JSON(http.StatusOK, batchSummary(batch))
}

func (s *EvaluatorService) handleGetEquityArrow(c *gin.Context) {
	s.serveArrow(c, arrowexport.EncodeEquityCurve)
}

func (s *EvaluatorService) handleGetTradesArrow(c *gin.Context) {
	s.serveArrow(c, arrowexport.EncodeTrades)
}

func (s *EvaluatorService) serveArrow(c *gin.Context, encode func(*engine.Result) ([]byte, error)) {
	batch, ok := s.lookup(c.Param("job_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job id"})
		return
	}
	instrument := c.Query("instrument")
	result, ok := batch.Results[instrument]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no result for instrument %q", instrument)})
		return
	}
	data, err := encode(result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/vnd.apache.arrow.stream", data)
}

func (s *EvaluatorService) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
	})
}

func (s *EvaluatorService) lookup(jobID string) (*engine.BatchResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.jobs[jobID]
	return batch, ok
}

func batchSummary(batch *engine.BatchResult) gin.H {
	results := make(map[string]gin.H, len(batch.Results))
	for instrument, res := range batch.Results {
		results[instrument] = gin.H{
			"bars_processed":       res.BarsProcessed,
			"final_equity":         res.Metrics.FinalEquity.String(),
			"pnl":                  res.Metrics.PnL.String(),
			"cagr_percent":         res.Metrics.CAGRPercent,
			"sharpe_ratio":         res.Metrics.SharpeRatio,
			"max_drawdown_percent": res.Metrics.MaxDrawdownPercent,
			"total_trades":         res.Metrics.TotalTrades,
			"win_rate_percent":     res.Metrics.WinRatePercent,
			"profit_factor":        res.Metrics.ProfitFactor,
			"trades":               res.Trades,
		}
	}
	return gin.H{
		"manifest": batch.Manifest,
		"results":  results,
		"errors":   batch.Errors,
	}
}

func main() {
	httpPort := flag.Int("http-port", 8080, "HTTP listen port")
	configPath := flag.String("config", "", "Path to YAML strategy config; defaults apply if empty")
	workers := flag.Int("workers", 0, "Worker count for batch evaluation (0 = NumCPU)")
	chAddr := flag.String("ch-addr", "localhost:9000", "ClickHouse native address")
	chDB := flag.String("ch-db", "trendeval", "ClickHouse database")
	chUser := flag.String("ch-user", "default", "ClickHouse user")
	chPass := flag.String("ch-pass", "", "ClickHouse password")
	chTable := flag.String("ch-table", "daily_bars", "ClickHouse bars table")
	flag.Parse()

	logger, err := zap.NewProduction()
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

	service := NewEvaluatorService(cfg, store, *workers, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	service.setupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *httpPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting HTTP server", zap.Int("port", *httpPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to serve HTTP", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
