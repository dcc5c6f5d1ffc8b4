package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// configurationShowCmd represents the configuration show command
var configurationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show dbinit configuration attributes and their sources",
	Long: `Show dbinit configuration attributes and their sources.

Each attribute is reported with where its value came from: default, profile,
file, environment or flag. Passwords are never printed.

Config file location: /etc/dbinit/dbinit.yml (or DBINIT_CONFIG_PATH)

Example:
  dbinitctl configuration show
  dbinitctl configuration show --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		tenants, _ := cmd.Flags().GetStringSlice("tenant")

		if err := showConfiguration(tenants, output, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to show configuration: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	configurationCmd.AddCommand(configurationShowCmd)
	configurationShowCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	configurationShowCmd.Flags().StringSlice("tenant", nil, "Include tenant_<id> in target_dbs (repeatable)")
}

func showConfiguration(tenants []string, output string, out io.Writer) error {
	cfg, err := loadConfig(tenants)
	if err != nil {
		return err
	}

	if output == "json" {
		jsonOutput, err := cfg.FormatJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, jsonOutput)
		return nil
	}

	fmt.Fprint(out, cfg.FormatText())
	return nil
}
