package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate <name>",
	Args:  cobra.ExactArgs(1),
	Short: "Generate new key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString("account-path")
		if err != nil {
			return err
		}

		return runKeyGen(keyPath(args[0], path))
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runKeyGen(dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("key %s already exists", dest)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return err
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	if err := crypto.SaveECDSA(dest, privateKey); err != nil {
		return err
	}

	fmt.Println(address.FromPublicKey(privateKey.PublicKey))

	return nil
}
