package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/dbinit/pkg/config"
	"github.com/doodlesbykumbi/dbinit/pkg/secret"
)

// sealableAttributes may hold enc: values.
var sealableAttributes = []string{
	config.AttrDatabaseURL,
	config.AttrAdminUser,
	config.AttrAdminPassword,
	config.AttrAppUser,
	config.AttrAppPassword,
}

// secretEncryptCmd represents the secret encrypt command
var secretEncryptCmd = &cobra.Command{
	Use:   "encrypt <attribute> [value]",
	Short: "Encrypt a configuration value with DBINIT_DATA_KEY",
	Long: `Encrypt a configuration value with DBINIT_DATA_KEY.

The attribute name is bound into the ciphertext, so the result only decrypts
as that attribute. When value is omitted it is read from the first line of
standard input.

Attributes: database_url, admin_user, admin_password, app_user, app_password

Example:
  dbinitctl secret encrypt app_password 's3cret'
  echo -n 's3cret' | dbinitctl secret encrypt admin_password`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			line, err := readLine(os.Stdin)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to read value: %v\n", err)
				os.Exit(1)
			}
			value = line
		}

		sealed, err := encryptValue(args[0], value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encrypt value: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(sealed)
	},
}

func init() {
	secretCmd.AddCommand(secretEncryptCmd)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func encryptValue(attribute, value string) (string, error) {
	if !slices.Contains(sealableAttributes, attribute) {
		return "", fmt.Errorf("attribute %q cannot be encrypted (allowed: %s)", attribute, strings.Join(sealableAttributes, ", "))
	}
	if value == "" {
		return "", fmt.Errorf("value is empty")
	}

	cipher, err := secret.CipherFromEnv()
	if err != nil {
		return "", err
	}
	return secret.Seal(cipher, attribute, value)
}
