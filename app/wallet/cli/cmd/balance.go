package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
)

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Print the balance of an address, the selected account by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		var a address.Address
		switch len(args) {
		case 1:
			if a, err = address.ParseDestination(args[0]); err != nil {
				return err
			}
		default:
			local, err := w.signer(cmd)
			if err != nil {
				return err
			}
			a = local.Address()
		}

		return runBalance(cmd.Context(), w, a)
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(ctx context.Context, w *wallet, a address.Address) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	bal, err := w.bc.Balance(ctx, a)
	if err != nil {
		return userErr(err)
	}

	fmt.Println("For Account:", a)
	fmt.Println(amount.Format(bal), "TRX")

	return nil
}
