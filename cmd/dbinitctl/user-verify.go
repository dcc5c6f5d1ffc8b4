package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
	"github.com/doodlesbykumbi/dbinit/pkg/engine"
)

// userVerifyCmd represents the user verify command
var userVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the application user on every target database",
	Long: `Check the application user on every target database.

For each target the command confirms that the user exists with exactly one
role, readWrite on that database, then logs in with the application password
and checks that it can read and write there but is refused an administrative
command.

Example:
  dbinitctl user verify
  dbinitctl user verify --tenant 42 --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		tenants, _ := cmd.Flags().GetStringSlice("tenant")
		output, _ := cmd.Flags().GetString("output")

		ctx, cancel := signalContext()
		defer cancel()

		if err := verifyUser(ctx, tenants, output, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to verify user: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	userCmd.AddCommand(userVerifyCmd)
	userVerifyCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}

func verifyUser(ctx context.Context, tenants []string, output string, out io.Writer) error {
	cfg, err := loadConfig(tenants)
	if err != nil {
		return err
	}
	runner, err := engine.NewRunner(cfg)
	if err != nil {
		return err
	}

	results, verifyErr := runner.Verify(ctx)
	if err := writeVerifications(out, output, results); err != nil {
		return err
	}
	return verifyErr
}

func writeVerifications(out io.Writer, output string, results []bootstrap.Verification) error {
	if output == "json" {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	for _, v := range results {
		if v.OK() {
			fmt.Fprintf(out, "%-28s ok\n", v.Database)
			continue
		}
		fmt.Fprintf(out, "%-28s FAILED: %s\n", v.Database, strings.Join(v.Problems(), ", "))
	}
	return nil
}
