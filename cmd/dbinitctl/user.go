package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// userCmd represents the user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect or remove the application user",
	Long:  `Inspect or remove the application user on the target databases.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'user' requires a subcommand (verify, drop)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.PersistentFlags().StringSlice("tenant", nil, "Also include tenant_<id> (repeatable)")
}
