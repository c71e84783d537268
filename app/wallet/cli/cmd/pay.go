package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/risk"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/state"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
)

// payCmd represents the pay command
var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Pay the configured total to the seller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		yes, err := cmd.Flags().GetBool("yes")
		if err != nil {
			return err
		}

		local, err := w.signer(cmd)
		if err != nil {
			return err
		}

		st, err := w.state(local)
		if err != nil {
			return err
		}

		p, err := prepare(cmd, st, local.Address())
		if err != nil {
			return userErr(err)
		}
		printPayment(p)

		if err := confirmRisk(p.Risk, yes); err != nil {
			st.Discard(p.ID)
			return err
		}

		txid, err := st.Submit(cmd.Context(), p.ID, yes)
		if err != nil {
			return userErr(err)
		}

		fmt.Println("txid:", txid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(payCmd)
	payCmd.Flags().BoolP("yes", "y", false, "Give the second confirmation a risky payment needs.")
	payCmd.Flags().Bool("node-seeded", false, "Have the node create the transfer and check it instead of building it locally.")
}

// prepare builds the payment locally, or adopts the node's transfer when
// --node-seeded is set.
func prepare(cmd *cobra.Command, st *state.State, from address.Address) (state.Payment, error) {
	seeded, err := cmd.Flags().GetBool("node-seeded")
	if err != nil {
		return state.Payment{}, err
	}

	if seeded {
		return st.PrepareFromNode(cmd.Context(), from)
	}
	return st.Prepare(cmd.Context(), from)
}

func printPayment(p state.Payment) {
	fmt.Println("from:  ", p.From)
	fmt.Println("to:    ", p.To)
	fmt.Println("amount:", amount.Format(p.Amount), "TRX")
	fmt.Println("txid:  ", p.TxID)
	fmt.Println("risk:  ", p.Risk.Level, p.Risk.Message)
}

// confirmRisk refuses blocked payments and the ones needing a second
// confirmation that wasn't given.
func confirmRisk(res risk.Result, yes bool) error {
	switch {
	case res.Level == risk.Block:
		return fmt.Errorf("%w: %s", state.ErrBlocked, res.Message)
	case res.RequiresSecondConfirmation && !yes:
		return fmt.Errorf("%w: %s, repeat with --yes", state.ErrConfirmationRequired, res.Message)
	}
	return nil
}
