package commands

import (
	"fmt"

	"github.com/Kheopsian/Seederr/internal/logger"
	"github.com/Kheopsian/Seederr/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource describes where the configuration came from for logging.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	return config.GetDefaultConfigPath()
}
