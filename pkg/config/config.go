// Package config loads, validates and watches the Seederr configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Kheopsian/Seederr/internal/bytesize"
	"github.com/Kheopsian/Seederr/pkg/engine"
	"github.com/Kheopsian/Seederr/pkg/history"
	"github.com/Kheopsian/Seederr/pkg/qbit"
)

// Config is the Seederr configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (SEEDERR_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Qbit configures the qBittorrent Web API connection.
	Qbit qbit.Config `mapstructure:"qbittorrent" yaml:"qbittorrent"`

	// Database configures the metric history store (SQLite or PostgreSQL).
	Database history.Config `mapstructure:"database" yaml:"database"`

	// Tiers configures the two storage tier roots.
	Tiers TiersConfig `mapstructure:"tiers" yaml:"tiers"`

	// Rebalance contains the engine tunables.
	Rebalance RebalanceConfig `mapstructure:"rebalance" yaml:"rebalance"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written.
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TiersConfig configures the two storage tier roots. Both paths must be
// visible to this process AND to qBittorrent under the same names.
type TiersConfig struct {
	// CachePath is the root of the fast, bounded tier.
	CachePath string `mapstructure:"cache_path" validate:"required" yaml:"cache_path"`

	// MasterPath is the root of the slow, permanent tier. Content under
	// this root is never deleted.
	MasterPath string `mapstructure:"master_path" validate:"required,nefield=CachePath" yaml:"master_path"`

	// CacheCapacityOverride pins the cache capacity instead of statting the
	// volume. Useful when the mount visible to the process does not reflect
	// the real volume size. Zero means stat the filesystem.
	// Supports human-readable sizes: "500GiB", "2TB".
	CacheCapacityOverride bytesize.ByteSize `mapstructure:"cache_capacity_override" yaml:"cache_capacity_override,omitempty"`
}

// RebalanceConfig contains the engine tunables. All of these are hot-
// reloadable: changes picked up by the config watcher apply on the next cycle.
type RebalanceConfig struct {
	// Interval between cycles.
	Interval time.Duration `mapstructure:"interval" validate:"required,gt=0" yaml:"interval"`

	// TargetFillPercent is how full the planner is allowed to fill the
	// cache tier, in percent of its capacity.
	TargetFillPercent int `mapstructure:"target_fill_percent" validate:"min=1,max=100" yaml:"target_fill_percent"`

	// MaxMovesPerCycle bounds relocations per cycle. Zero means evaluate
	// and log but never move.
	MaxMovesPerCycle int `mapstructure:"max_moves_per_cycle" validate:"min=0" yaml:"max_moves_per_cycle"`

	// DryRun logs every intended relocation without touching files or the
	// torrent client.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`

	// MetricGracePeriod is how long metric history outlives a payload that
	// is no longer reported by the client.
	MetricGracePeriod time.Duration `mapstructure:"metric_grace_period" yaml:"metric_grace_period"`

	// Weights are the scoring weights.
	Weights WeightsConfig `mapstructure:"weights" yaml:"weights"`
}

// WeightsConfig holds the scoring weights.
type WeightsConfig struct {
	// Leechers weights raw demand.
	Leechers float64 `mapstructure:"leechers" validate:"min=0" yaml:"leechers"`

	// Ratio weights swarm scarcity (leechers per seeder).
	Ratio float64 `mapstructure:"ratio" validate:"min=0" yaml:"ratio"`

	// LongTerm weights the EMA-smoothed historical upload rate.
	LongTerm float64 `mapstructure:"long_term" validate:"min=0" yaml:"long_term"`

	// ShortTerm weights the instantaneous upload rate.
	ShortTerm float64 `mapstructure:"short_term" validate:"min=0" yaml:"short_term"`

	// EMAAlpha is the smoothing factor, 0 < alpha <= 1.
	EMAAlpha float64 `mapstructure:"ema_alpha" validate:"gt=0,lte=1" yaml:"ema_alpha"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and the HTTP server run.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Tunables converts the rebalance section into engine tunables.
func (c *Config) Tunables() engine.Tunables {
	return engine.Tunables{
		Weights: engine.Weights{
			Leechers:  c.Rebalance.Weights.Leechers,
			Ratio:     c.Rebalance.Weights.Ratio,
			LongTerm:  c.Rebalance.Weights.LongTerm,
			ShortTerm: c.Rebalance.Weights.ShortTerm,
			EMAAlpha:  c.Rebalance.Weights.EMAAlpha,
		},
		TargetFillPercent: c.Rebalance.TargetFillPercent,
		MaxMovesPerCycle:  c.Rebalance.MaxMovesPerCycle,
		DryRun:            c.Rebalance.DryRun,
		MetricGracePeriod: c.Rebalance.MetricGracePeriod,
	}
}

// TierPaths converts the tiers section into engine tier paths.
func (c *Config) TierPaths() engine.TierPaths {
	return engine.TierPaths{
		CacheRoot:  c.Tiers.CachePath,
		MasterRoot: c.Tiers.MasterPath,
	}
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	// An explicit zero means evaluate-only, so the move budget default
	// applies only when the key is absent from both file and environment.
	if !v.IsSet("rebalance.max_moves_per_cycle") {
		cfg.Rebalance.MaxMovesPerCycle = DefaultMaxMovesPerCycle
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the config
// file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  seederr init\n\n"+
				"Or specify a custom config file:\n"+
				"  seederr <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  seederr init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file carries the qBittorrent password.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file
// settings. Environment variables use the SEEDERR_ prefix, for example
// SEEDERR_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SEEDERR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for ByteSize and
// time.Duration values.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize so
// config files can use human-readable sizes like "500GiB" or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings to time.Duration so config files can
// use human-readable durations like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if home cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "seederr")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "seederr")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
