package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/dbinit/pkg/secret"
)

// dataKeyGenerateCmd represents the data-key > generate command
var dataKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a data encryption key",
	Long: `
Generate a data encryption key

Use this command to generate a new Base64-encoded 256 bit data encryption key. Once generated, this key should be placed into the environment of
dbinitctl as DBINIT_DATA_KEY. It is used to decrypt enc: values in dbinit.yml and in DBINIT_* variables.

Example:

$ export DBINIT_DATA_KEY="$(dbinitctl data-key generate)"
`,
	Run: func(cmd *cobra.Command, args []string) {
		key, err := secret.GenerateKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate data key: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s", base64.StdEncoding.Strict().EncodeToString(key))
	},
}

func init() {
	dataKeyCmd.AddCommand(dataKeyGenerateCmd)
}
