package engine

import (
	"crypto/sha256"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InstrumentSeries is one instrument's ordered bar sequence.
type InstrumentSeries struct {
	Instrument string
	Bars       []Bar
}

// RunManifest ties a batch result back to the exact inputs that
// produced it.
type RunManifest struct {
	JobID         string `json:"job_id"`
	EngineVersion string `json:"engine_version"`
	ConfigHash    string `json:"config_hash"`
	BarsChecksum  string `json:"bars_checksum"`
	Instruments   int    `json:"instruments"`
	CreatedAt     int64  `json:"created_at"`
}

// barsChecksum digests every instrument's bar sequence so a manifest
// pins the exact market data, not just the config.
func barsChecksum(series []InstrumentSeries) string {
	h := sha256.New()
	for _, s := range series {
		io.WriteString(h, s.Instrument)
		for _, b := range s.Bars {
			fmt.Fprintf(h, "|%d,%s,%s,%s,%s,%s",
				b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// BatchResult is the outcome of evaluating several instruments as
// independent simulations. Failures stay per-instrument: a validation
// error on one symbol never aborts the others.
type BatchResult struct {
	Manifest RunManifest
	Results  map[string]*Result
	Errors   map[string]string
}

const engineVersion = "1.0.0"

// Runner fans a batch of instruments over a bounded worker pool. Each
// instrument gets its own Account and Ledger, so workers share nothing
// but the configuration.
type Runner struct {
	cfg     Config
	workers int
	log     *zap.Logger
}

func NewRunner(cfg Config, workers int, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, workers: workers, log: logger}
}

func (r *Runner) RunBatch(series []InstrumentSeries) *BatchResult {
	jobID := uuid.NewString()
	r.log.Info("starting batch evaluation",
		zap.String("job_id", jobID),
		zap.Int("instruments", len(series)),
		zap.Int("workers", r.workers),
	)

	type outcome struct {
		instrument string
		result     *Result
		err        error
	}

	in := make(chan InstrumentSeries, len(series))
	out := make(chan outcome, len(series))

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sim := NewSimulator(r.cfg, r.log)
			for s := range in {
				res, err := sim.Run(s.Instrument, s.Bars)
				out <- outcome{instrument: s.Instrument, result: res, err: err}
			}
		}()
	}

	for _, s := range series {
		in <- s
	}
	close(in)
	wg.Wait()
	close(out)

	batch := &BatchResult{
		Manifest: RunManifest{
			JobID:         jobID,
			EngineVersion: engineVersion,
			ConfigHash:    r.cfg.Hash(),
			BarsChecksum:  barsChecksum(series),
			Instruments:   len(series),
			CreatedAt:     time.Now().UnixMilli(),
		},
		Results: make(map[string]*Result, len(series)),
		Errors:  make(map[string]string),
	}
	for o := range out {
		if o.err != nil {
			r.log.Warn("instrument evaluation failed",
				zap.String("job_id", jobID),
				zap.String("instrument", o.instrument),
				zap.Error(o.err),
			)
			batch.Errors[o.instrument] = o.err.Error()
			continue
		}
		batch.Results[o.instrument] = o.result
	}
	return batch
}
