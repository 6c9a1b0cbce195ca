package config

import (
	"strings"
	"time"

	"github.com/Kheopsian/Seederr/pkg/history"
	"github.com/Kheopsian/Seederr/pkg/qbit"
)

// Default engine tunables. The weights reproduce a ranking that favors raw
// demand first, scarcity second, with upload history as the tie-breaker
// between torrents of similar swarm shape.
const (
	DefaultInterval          = time.Hour
	DefaultTargetFillPercent = 90
	DefaultMaxMovesPerCycle  = 1
	DefaultMetricGracePeriod = 30 * 24 * time.Hour

	DefaultWeightLeechers  = 1000.0
	DefaultWeightRatio     = 200.0
	DefaultWeightLongTerm  = 0.8
	DefaultWeightShortTerm = 0.2
	DefaultEMAAlpha        = 0.012
)

// ApplyDefaults sets default values for any unspecified configuration fields.
// Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyQbitDefaults(cfg)
	applyRebalanceDefaults(&cfg.Rebalance)
	applyMetricsDefaults(&cfg.Metrics)
	cfg.Database.ApplyDefaults()

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyQbitDefaults(cfg *Config) {
	if cfg.Qbit.URL == "" {
		cfg.Qbit.URL = "http://localhost:8080"
	}
	if cfg.Qbit.Timeout == 0 {
		cfg.Qbit.Timeout = 30 * time.Second
	}
}

func applyRebalanceDefaults(cfg *RebalanceConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.TargetFillPercent == 0 {
		cfg.TargetFillPercent = DefaultTargetFillPercent
	}
	if cfg.MetricGracePeriod == 0 {
		cfg.MetricGracePeriod = DefaultMetricGracePeriod
	}
	// MaxMovesPerCycle is not defaulted here: zero is meaningful
	// (evaluate-only), so Load applies the default only when the key is
	// absent from every configuration source.
	if cfg.Weights == (WeightsConfig{}) {
		cfg.Weights = WeightsConfig{
			Leechers:  DefaultWeightLeechers,
			Ratio:     DefaultWeightRatio,
			LongTerm:  DefaultWeightLongTerm,
			ShortTerm: DefaultWeightShortTerm,
			EMAAlpha:  DefaultEMAAlpha,
		}
	}
	if cfg.Weights.EMAAlpha == 0 {
		cfg.Weights.EMAAlpha = DefaultEMAAlpha
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a complete configuration with default values.
// Used when no config file exists and by 'seederr init'.
func GetDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Qbit: defaultQbitConfig(),
		Tiers: TiersConfig{
			CachePath:  "/mnt/cache/torrents",
			MasterPath: "/mnt/master/torrents",
		},
		Rebalance: RebalanceConfig{
			Interval:          DefaultInterval,
			TargetFillPercent: DefaultTargetFillPercent,
			MaxMovesPerCycle:  DefaultMaxMovesPerCycle,
			DryRun:            true,
			MetricGracePeriod: DefaultMetricGracePeriod,
			Weights: WeightsConfig{
				Leechers:  DefaultWeightLeechers,
				Ratio:     DefaultWeightRatio,
				LongTerm:  DefaultWeightLongTerm,
				ShortTerm: DefaultWeightShortTerm,
				EMAAlpha:  DefaultEMAAlpha,
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Database:        defaultDatabaseConfig(),
		ShutdownTimeout: 30 * time.Second,
	}
}

func defaultQbitConfig() qbit.Config {
	return qbit.Config{
		URL:      "http://localhost:8080",
		Username: "admin",
		Password: "",
		Timeout:  30 * time.Second,
	}
}

func defaultDatabaseConfig() history.Config {
	cfg := history.Config{}
	cfg.ApplyDefaults()
	return cfg
}
