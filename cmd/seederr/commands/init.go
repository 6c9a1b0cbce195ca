package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kheopsian/Seederr/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample seederr configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/seederr/config.yaml.
Use --config to specify a custom path.

The generated configuration starts in dry-run mode: seederr logs every
relocation it would perform without moving anything until dry_run is set
to false.

Examples:
  # Initialize with default location
  seederr init

  # Initialize with custom path
  seederr init --config /etc/seederr/config.yaml

  # Force overwrite existing config
  seederr init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set the qBittorrent credentials and tier paths")
	fmt.Println("  2. Start the daemon with: seederr start")
	fmt.Println("  3. Disable dry_run once the logged decisions look right")
	return nil
}
