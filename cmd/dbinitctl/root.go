package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dbinitctl",
	Short: "Provision the application database user",
	Long: `dbinitctl ensures an application user with the readWrite role exists on
each target database. It is meant to run once as an init hook, before the
application that depends on the user starts.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
