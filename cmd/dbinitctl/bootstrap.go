package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/dbinit/pkg/config"
	"github.com/doodlesbykumbi/dbinit/pkg/engine"
)

// bootstrapCmd represents the bootstrap command
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Ensure the application user exists on every target database",
	Long: `Ensure the application user exists on every target database.

Opens an administrative session, then creates the application user with a
single readWrite role scoped to each target database. When the user already
exists, the command either prints "User might already exist: <error>" and
continues (suppress_duplicate_error=true, the inbox profile) or fails.

With --watch, the bootstrap runs again each time the config file changes.
Duplicates are always suppressed in watch mode.

Example:
  dbinitctl bootstrap
  DBINIT_PROFILE=m365 dbinitctl bootstrap
  dbinitctl bootstrap --tenant 42
  dbinitctl bootstrap --watch`,
	Run: func(cmd *cobra.Command, args []string) {
		tenants, _ := cmd.Flags().GetStringSlice("tenant")
		watch, _ := cmd.Flags().GetBool("watch")

		ctx, cancel := signalContext()
		defer cancel()

		var err error
		if watch {
			err = watchBootstrap(ctx, tenants, os.Stdout)
		} else {
			err = bootstrapOnce(ctx, tenants, os.Stdout)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
	bootstrapCmd.Flags().StringSlice("tenant", nil, "Also bootstrap tenant_<id> (repeatable)")
	bootstrapCmd.Flags().Bool("watch", false, "Re-run whenever the config file changes")
}

func bootstrapOnce(ctx context.Context, tenants []string, out io.Writer) error {
	cfg, err := loadConfig(tenants)
	if err != nil {
		return err
	}
	return runBootstrap(ctx, cfg, out)
}

func runBootstrap(ctx context.Context, cfg *config.Config, out io.Writer) error {
	runner, err := engine.NewRunner(cfg)
	if err != nil {
		return err
	}
	runner.SetOutput(out)

	_, err = runner.Run(ctx)
	return err
}
