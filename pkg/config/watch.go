package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/Kheopsian/Seederr/internal/logger"
)

// Watch reloads the configuration whenever the file at configPath changes and
// hands the result to onChange. A reload that fails to parse or validate is
// logged and discarded, so the running configuration never regresses to a
// broken one.
//
// Only the rebalance tunables are meant to be hot-reloaded; connection
// settings and tier paths still require a restart, which onChange callers
// enforce by only consuming the tunable sections.
func Watch(configPath string, onChange func(*Config)) {
	if configPath == "" {
		configPath = GetDefaultConfigPath()
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("configuration file changed, reloading", "file", e.Name)

		cfg, err := Load(configPath)
		if err != nil {
			logger.Error("configuration reload rejected", logger.KeyError, err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
