package commands

import (
	"fmt"

	"github.com/filewarden/filewarden/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample filewardend configuration file.

By default the file is created at $XDG_CONFIG_HOME/filewarden/config.yaml.
Use --config to specify a custom path.

Examples:
  filewardend init
  filewardend init --config /etc/filewarden/config.yaml
  filewardend init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	cmd.Printf("Configuration file created at: %s\n", configPath)
	cmd.Println("\nNext steps:")
	cmd.Println("  1. List the paths to protect under 'protect.paths' and set 'storage.root'")
	cmd.Println("  2. Start the daemon with: filewardend start")
	cmd.Println("  3. Initialize a baseline for each protected path: filewardend baseline <path>")

	return nil
}
