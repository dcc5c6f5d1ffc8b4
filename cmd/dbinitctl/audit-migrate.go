package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/dbinit/pkg/audit"
)

// auditMigrateCmd represents the audit migrate command
var auditMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create and/or upgrade the audit messages table",
	Long: `Create and/or upgrade the audit messages table.

Runs the embedded migrations against AUDIT_DATABASE_URL. Once the table
exists, every audit event is also stored there.

Example:
  AUDIT_DATABASE_URL=postgres://audit@db/audit dbinitctl audit migrate`,
	Run: func(cmd *cobra.Command, args []string) {
		version, err := audit.Migrate(os.Getenv("AUDIT_DATABASE_URL"))
		if err != nil {
			fmt.Println("Migration failed:", err)
			os.Exit(1)
		}
		fmt.Printf("Audit schema at version: %d\n", version)
	},
}

func init() {
	auditCmd.AddCommand(auditMigrateCmd)
}
