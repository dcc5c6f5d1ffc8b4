package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// configurationValidateCmd represents the configuration validate command
var configurationValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the dbinit configuration",
	Long: `Validate the current configuration without connecting to the server.

Checks the engine and profile names, the server URL scheme, target database
names and, in production, that every credential is set explicitly.

Example:
  dbinitctl configuration validate
  DBINIT_ENV=production dbinitctl configuration validate`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := validateConfiguration(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to validate configuration: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	configurationCmd.AddCommand(configurationValidateCmd)
}

func validateConfiguration(out io.Writer) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Config file: %s\n", cfg.ConfigFilePath())
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Fprintln(out, "Configuration is valid")
	return nil
}
