package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/dbinit/pkg/engine"
)

// userDropCmd represents the user drop command
var userDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Remove the application user from every target database",
	Long: `Remove the application user from every target database.

Targets where the user does not exist are reported and skipped. Use this to
tear an environment down or to force the next bootstrap to recreate the user.

Example:
  dbinitctl user drop --yes
  dbinitctl user drop --tenant 42 --yes`,
	Run: func(cmd *cobra.Command, args []string) {
		tenants, _ := cmd.Flags().GetStringSlice("tenant")
		yes, _ := cmd.Flags().GetBool("yes")

		ctx, cancel := signalContext()
		defer cancel()

		if err := dropUser(ctx, tenants, yes, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to drop user: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	userCmd.AddCommand(userDropCmd)
	userDropCmd.Flags().Bool("yes", false, "Confirm removal")
}

func dropUser(ctx context.Context, tenants []string, yes bool, out io.Writer) error {
	if !yes {
		return errors.New("refusing to drop the application user without --yes")
	}

	cfg, err := loadConfig(tenants)
	if err != nil {
		return err
	}
	runner, err := engine.NewRunner(cfg)
	if err != nil {
		return err
	}
	runner.SetOutput(out)

	_, err = runner.Drop(ctx)
	return err
}
