package engine

import (
	"crypto/sha256"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StopMode selects how stop and target prices are derived at entry.
type StopMode string

const (
	// StopModeATR places the stop a multiple of ATR below the entry
	// and the target a multiple of ATR above it.
	StopModeATR StopMode = "atr"
	// StopModeFraction places the stop and target at fixed fractions
	// of the entry price.
	StopModeFraction StopMode = "fraction"
)

// Config holds every tunable of a single evaluation run.
type Config struct {
	ShortPeriod      int `yaml:"short_period"`
	LongPeriod       int `yaml:"long_period"`
	RSIPeriod        int `yaml:"rsi_period"`
	MACDFast         int `yaml:"macd_fast"`
	MACDSlow         int `yaml:"macd_slow"`
	MACDSignalPeriod int `yaml:"macd_signal_period"`
	ATRPeriod        int `yaml:"atr_period"`

	EntryRSIThreshold float64 `yaml:"entry_rsi_threshold"`
	RiskFraction      float64 `yaml:"risk_fraction"`

	StopMode            StopMode `yaml:"stop_mode"`
	StopLossFraction    float64  `yaml:"stop_loss_fraction"`
	TakeProfitFraction  float64  `yaml:"take_profit_fraction"`
	StopATRMultiplier   float64  `yaml:"stop_atr_multiplier"`
	TargetATRMultiplier float64  `yaml:"target_atr_multiplier"`

	InitialCash    float64 `yaml:"initial_cash"`
	CommissionRate float64 `yaml:"commission_rate"`
	RiskFreeRate   float64 `yaml:"risk_free_rate"`
}

// DefaultConfig returns the stock EMA(8)/EMA(21) trend configuration
// with MACD(12,26,9) confirmation and ATR-based stops.
func DefaultConfig() Config {
	return Config{
		ShortPeriod:         8,
		LongPeriod:          21,
		RSIPeriod:           14,
		MACDFast:            12,
		MACDSlow:            26,
		MACDSignalPeriod:    9,
		ATRPeriod:           14,
		EntryRSIThreshold:   50,
		RiskFraction:        0.02,
		StopMode:            StopModeATR,
		StopLossFraction:    0.95,
		TakeProfitFraction:  1.10,
		StopATRMultiplier:   2.0,
		TargetATRMultiplier: 3.0,
		InitialCash:         10000,
		CommissionRate:      0.001,
		RiskFreeRate:        0,
	}
}

// LoadConfig reads a YAML config file over the defaults, so partial
// files only override what they name.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the simulator cannot run.
func (c Config) Validate() error {
	type period struct {
		name string
		v    int
	}
	for _, p := range []period{
		{"short_period", c.ShortPeriod},
		{"long_period", c.LongPeriod},
		{"rsi_period", c.RSIPeriod},
		{"macd_fast", c.MACDFast},
		{"macd_slow", c.MACDSlow},
		{"macd_signal_period", c.MACDSignalPeriod},
		{"atr_period", c.ATRPeriod},
	} {
		if p.v <= 0 {
			return fmt.Errorf("config: %s must be positive, got %d", p.name, p.v)
		}
	}
	if c.ShortPeriod >= c.LongPeriod {
		return fmt.Errorf("config: short_period %d must be below long_period %d", c.ShortPeriod, c.LongPeriod)
	}
	if c.MACDFast >= c.MACDSlow {
		return fmt.Errorf("config: macd_fast %d must be below macd_slow %d", c.MACDFast, c.MACDSlow)
	}
	if c.EntryRSIThreshold < 0 || c.EntryRSIThreshold > 100 {
		return fmt.Errorf("config: entry_rsi_threshold %.2f outside [0,100]", c.EntryRSIThreshold)
	}
	if c.RiskFraction <= 0 || c.RiskFraction > 1 {
		return fmt.Errorf("config: risk_fraction %.4f outside (0,1]", c.RiskFraction)
	}
	switch c.StopMode {
	case StopModeATR:
		if c.StopATRMultiplier <= 0 || c.TargetATRMultiplier <= 0 {
			return fmt.Errorf("config: atr stop multipliers must be positive")
		}
	case StopModeFraction:
		if c.StopLossFraction <= 0 || c.StopLossFraction >= 1 {
			return fmt.Errorf("config: stop_loss_fraction %.4f outside (0,1)", c.StopLossFraction)
		}
		if c.TakeProfitFraction <= 1 {
			return fmt.Errorf("config: take_profit_fraction %.4f must exceed 1", c.TakeProfitFraction)
		}
	default:
		return fmt.Errorf("config: unknown stop_mode %q", c.StopMode)
	}
	if c.InitialCash <= 0 {
		return fmt.Errorf("config: initial_cash must be positive")
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return fmt.Errorf("config: commission_rate %.4f outside [0,1)", c.CommissionRate)
	}
	return nil
}

// Hash returns a stable digest of the configuration, recorded in run
// manifests so results can be tied back to the exact settings.
func (c Config) Hash() string {
	data, _ := yaml.Marshal(c)
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// WarmupBars is the longest indicator warmup in the configuration;
// no entries can occur before this many bars.
func (c Config) WarmupBars() int {
	warmup := c.LongPeriod
	if w := c.MACDSlow + c.MACDSignalPeriod - 1; w > warmup {
		warmup = w
	}
	if w := c.RSIPeriod + 1; w > warmup {
		warmup = w
	}
	if w := c.ATRPeriod + 1; w > warmup {
		warmup = w
	}
	return warmup
}
