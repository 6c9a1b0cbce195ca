package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Kheopsian/Seederr/internal/logger"
	"github.com/Kheopsian/Seederr/pkg/config"
	"github.com/Kheopsian/Seederr/pkg/engine"
	"github.com/Kheopsian/Seederr/pkg/history"
	"github.com/Kheopsian/Seederr/pkg/metrics"
	"github.com/Kheopsian/Seederr/pkg/qbit"
	"github.com/Kheopsian/Seederr/pkg/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the seederr rebalancing daemon",
	Long: `Start the seederr daemon. It runs rebalance cycles on the configured
interval until interrupted.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/seederr/config.yaml.

Examples:
  # Start with default config location
  seederr start

  # Start with custom config file
  seederr start --config /etc/seederr/config.yaml

  # Start with environment variable overrides
  SEEDERR_LOGGING_LEVEL=DEBUG seederr start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if cfg.Rebalance.DryRun {
		logger.Warn("dry-run mode enabled, no files will be moved")
	}

	// Metrics registry must exist before any metric constructor runs.
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics collection disabled")
	}

	store, err := history.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open metric store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("metric store close error", logger.KeyError, err)
		}
	}()

	paths := cfg.TierPaths()

	client, err := qbit.New(cfg.Qbit, paths)
	if err != nil {
		return fmt.Errorf("failed to create qbittorrent client: %w", err)
	}
	if err := client.Login(ctx); err != nil {
		return fmt.Errorf("failed to authenticate with qbittorrent: %w", err)
	}
	logger.Info("connected to qbittorrent", "url", cfg.Qbit.URL)

	stat := storage.NewDiskStat()
	if cfg.Tiers.CacheCapacityOverride > 0 {
		stat.OverrideCapacity(paths.CacheRoot, cfg.Tiers.CacheCapacityOverride.Uint64())
		logger.Info("cache capacity overridden",
			"capacity", cfg.Tiers.CacheCapacityOverride.String())
	}

	orch := engine.NewOrchestrator(
		client,
		store,
		stat,
		storage.NewFSTransfer(),
		paths,
		cfg.Tunables(),
		metrics.NewEngineMetrics(),
	)

	// Hot reload: only the rebalance tunables are consumed from a changed
	// file; connection settings and tier paths require a restart.
	config.Watch(GetConfigFile(), func(updated *config.Config) {
		orch.UpdateTunables(updated.Tunables())
	})

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics server error", logger.KeyError, err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- orch.Run(ctx, cfg.Rebalance.Interval)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown error", logger.KeyError, err)
			}
		}

		select {
		case <-errCh:
		case <-shutdownCtx.Done():
			logger.Warn("shutdown timeout exceeded, exiting")
		}

	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("engine stopped: %w", err)
		}
	}

	logger.Info("seederr stopped")
	return nil
}
