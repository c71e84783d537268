package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
)

// accountCmd represents the account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print the address of the selected account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		acctName, err := cmd.Flags().GetString("account")
		if err != nil {
			return err
		}

		path, err := cmd.Flags().GetString("account-path")
		if err != nil {
			return err
		}

		return runAccount(keyPath(acctName, path))
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func runAccount(user string) error {
	privateKey, err := crypto.LoadECDSA(user)
	if err != nil {
		return err
	}

	fmt.Println(address.FromPublicKey(privateKey.PublicKey))

	return nil
}
