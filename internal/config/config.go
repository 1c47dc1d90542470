// Package config loads the backtest driver's configuration the way the
// rest of the stack loads service configuration: a typed struct populated
// from a viper-backed YAML file, falling back to documented defaults when
// no file is present.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	pkgerrors "github.com/krish567366/submicro-execution-engine/pkg/errors"
)

// BacktestConfig is the driver configuration of spec §6: recognized
// options are simulated_latency_ns, initial_capital, commission_per_share,
// max_position, enable_slippage, enable_adverse_selection, random_seed,
// and latency_sweep.
type BacktestConfig struct {
	SimulatedLatencyNs      int64   `mapstructure:"simulated_latency_ns"`
	InitialCapital          float64 `mapstructure:"initial_capital"`
	CommissionPerShare      float64 `mapstructure:"commission_per_share"`
	MaxPosition             int64   `mapstructure:"max_position"`
	EnableSlippage          bool    `mapstructure:"enable_slippage"`
	EnableAdverseSelection  bool    `mapstructure:"enable_adverse_selection"`
	RandomSeed              uint32  `mapstructure:"random_seed"`
	LatencySweep            []int64 `mapstructure:"latency_sweep"`

	TimeHorizonSeconds float64 `mapstructure:"time_horizon_seconds"`
	RiskAversion       float64 `mapstructure:"risk_aversion"`
	SigmaSquaredPerSec float64 `mapstructure:"sigma_squared_per_sec"`
	OrderArrivalRate   float64 `mapstructure:"order_arrival_rate"`
	TickSize           float64 `mapstructure:"tick_size"`

	HawkesBaselineBuy  float64 `mapstructure:"hawkes_baseline_buy"`
	HawkesBaselineSell float64 `mapstructure:"hawkes_baseline_sell"`
	HawkesAlphaSelf    float64 `mapstructure:"hawkes_alpha_self"`
	HawkesAlphaCross   float64 `mapstructure:"hawkes_alpha_cross"`
	HawkesBeta         float64 `mapstructure:"hawkes_beta"`
	HawkesGamma        float64 `mapstructure:"hawkes_gamma"`
}

// MinimumLatencyFloorNs is the protective floor of spec §4.7: effective
// fill-scheduling latency is max(SimulatedLatencyNs, this), always, even
// when the config requests less.
const MinimumLatencyFloorNs int64 = 550

// EffectiveLatencyNs applies the latency floor.
func (c BacktestConfig) EffectiveLatencyNs() int64 {
	if c.SimulatedLatencyNs < MinimumLatencyFloorNs {
		return MinimumLatencyFloorNs
	}
	return c.SimulatedLatencyNs
}

func defaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		SimulatedLatencyNs:     850,
		InitialCapital:         1_000_000,
		CommissionPerShare:     0.0005,
		MaxPosition:            1000,
		EnableSlippage:         true,
		EnableAdverseSelection: true,
		RandomSeed:             42,

		TimeHorizonSeconds: 300,
		RiskAversion:       0.01,
		SigmaSquaredPerSec: 1e-8,
		OrderArrivalRate:   10,
		TickSize:           0.01,

		HawkesBaselineBuy:  0.5,
		HawkesBaselineSell: 0.5,
		HawkesAlphaSelf:    0.3,
		HawkesAlphaCross:   0.1,
		HawkesBeta:         1.0,
		HawkesGamma:        1.5,
	}
}

// Manager loads and holds the active BacktestConfig. One Manager is
// constructed at startup; the driver reads its snapshot once per run and
// never touches viper again on the hot path.
type Manager struct {
	path   string
	logger *zap.Logger
	mu     sync.RWMutex
	cfg    BacktestConfig
	v      *viper.Viper
}

// NewManager creates a config manager rooted at path (empty string
// searches the default locations: ".", "./configs", "/etc/tickqueue").
func NewManager(path string, logger *zap.Logger) *Manager {
	return &Manager{
		path:   path,
		logger: logger.Named("config"),
		cfg:    defaultBacktestConfig(),
		v:      viper.New(),
	}
}

// Load reads the configuration file, if any, merging it over the
// documented defaults. A missing file is not an error — spec §6 fields
// all have defaults; a malformed file is a fatal ConfigError.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path != "" {
		if _, err := os.Stat(m.path); os.IsNotExist(err) {
			m.logger.Warn("config file not found, using defaults", zap.String("path", m.path))
			return nil
		}
		m.v.SetConfigFile(m.path)
	} else {
		m.v.SetConfigName("backtest")
		m.v.SetConfigType("yaml")
		m.v.AddConfigPath(".")
		m.v.AddConfigPath("./configs")
		m.v.AddConfigPath("/etc/tickqueue")
	}

	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			m.logger.Warn("config file not found, using defaults")
			return nil
		}
		return pkgerrors.Fatal(pkgerrors.KindConfigError, "config",
			fmt.Sprintf("failed to read config file %q", m.path), err)
	}

	cfg := defaultBacktestConfig()
	if err := m.v.Unmarshal(&cfg); err != nil {
		return pkgerrors.Fatal(pkgerrors.KindConfigError, "config", "failed to unmarshal config", err)
	}
	if cfg.InitialCapital <= 0 {
		return pkgerrors.Fatal(pkgerrors.KindConfigError, "config", "initial_capital must be positive", nil)
	}
	if cfg.CommissionPerShare < 0 {
		return pkgerrors.Fatal(pkgerrors.KindConfigError, "config", "commission_per_share must be >= 0", nil)
	}
	if cfg.MaxPosition <= 0 {
		return pkgerrors.Fatal(pkgerrors.KindConfigError, "config", "max_position must be positive", nil)
	}
	if cfg.SimulatedLatencyNs < 0 {
		return pkgerrors.Fatal(pkgerrors.KindConfigError, "config", "simulated_latency_ns must be >= 0", nil)
	}

	m.cfg = cfg
	m.logger.Info("backtest configuration loaded",
		zap.String("file", m.v.ConfigFileUsed()),
		zap.Int64("effective_latency_ns", cfg.EffectiveLatencyNs()))
	return nil
}

// Config returns a snapshot of the current configuration.
func (m *Manager) Config() BacktestConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}
