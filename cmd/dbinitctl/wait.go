package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
	"github.com/doodlesbykumbi/dbinit/pkg/config"
	"github.com/doodlesbykumbi/dbinit/pkg/engine"
)

// waitCmd represents the wait command
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the database server to be ready",
	Long: `Wait for the database server to be ready by opening an administrative
session once per second.

This command will repeatedly try to connect until it succeeds or the maximum
number of retries is reached. Authentication failures stop it immediately.

Example:
  dbinitctl wait
  dbinitctl wait --retries 60`,
	Run: func(cmd *cobra.Command, args []string) {
		retries, _ := cmd.Flags().GetInt("retries")

		ctx, cancel := signalContext()
		defer cancel()

		cfg, err := loadConfig(nil)
		if err == nil {
			err = waitForServer(ctx, cfg, retries)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Server did not become ready: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Database server is ready")
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().IntP("retries", "r", 90, "Number of retries")
}

func waitRetryConfig(retries int) bootstrap.RetryConfig {
	return bootstrap.RetryConfig{
		InitialDelay: time.Second,
		MaxDelay:     time.Second,
		Multiplier:   1,
		MaxRetries:   retries,
	}
}

func waitForServer(ctx context.Context, cfg *config.Config, retries int) error {
	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}

	opts := engine.Options(cfg)
	opts.Retry = waitRetryConfig(retries)
	runner := bootstrap.NewRunner(eng, engine.AdminCredential(cfg), opts)

	fmt.Printf("Waiting for %s at %s...\n", eng.Name(), cfg.RedactedURL())
	return runner.Wait(ctx)
}
