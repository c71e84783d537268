package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
)

// configCmd groups the payment contract commands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the payment contract",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the payment contract",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		printConfig(w.settings.Snapshot())
		return nil
	},
}

var configSellerCmd = &cobra.Command{
	Use:   "seller <address>",
	Short: "Set the seller address; the first one must be confirmed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		confirm, err := cmd.Flags().GetString("confirm")
		if err != nil {
			return err
		}

		return printResult(w.settings.SetSellerAddress(args[0], confirm))
	},
}

var configPriceCmd = &cobra.Command{
	Use:   "price <trx>",
	Short: "Set the unit price while it's unlocked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		return printResult(w.settings.SetPrice(args[0]))
	},
}

var configMultiplierCmd = &cobra.Command{
	Use:   "multiplier <n>",
	Short: "Set the multiplier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		return printResult(w.settings.SetMultiplier(args[0]))
	},
}

var configEndpointCmd = &cobra.Command{
	Use:   "endpoint <url>",
	Short: "Record the node endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		return printResult(w.settings.SetNodeEndpoint(args[0]))
	},
}

var configBiometricCmd = &cobra.Command{
	Use:   "biometric <true|false>",
	Short: "Require biometric confirmation before signing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		required, err := strconv.ParseBool(args[0])
		if err != nil {
			return fmt.Errorf("biometric: %w", err)
		}

		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		if err := w.settings.SetBiometric(required); err != nil {
			return err
		}
		return printResult(settings.Result{Outcome: settings.Success}, nil)
	},
}

var configLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Save the complete contract and lock its price",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		res, err := w.settings.SaveConfig(w.settings.Snapshot())
		if err := printResult(res, err); err != nil {
			return err
		}

		printConfig(w.settings.Snapshot())
		return nil
	},
}

var configUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the price",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		if err := w.settings.UnlockPrice(); err != nil {
			return err
		}
		return printResult(settings.Result{Outcome: settings.Success}, nil)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configSellerCmd, configPriceCmd, configMultiplierCmd,
		configEndpointCmd, configBiometricCmd, configLockCmd, configUnlockCmd)

	configSellerCmd.Flags().StringP("confirm", "c", "", "The seller address entered a second time.")
}

func printConfig(cfg settings.Config) {
	total := "overflow"
	if t, err := cfg.Total(); err == nil {
		total = amount.Format(t)
	}

	fmt.Println("seller:     ", cfg.SellerAddress)
	fmt.Println("price:      ", amount.Format(cfg.PricePerUnit), "TRX")
	fmt.Println("multiplier: ", cfg.Multiplier)
	fmt.Println("total:      ", total, "TRX")
	fmt.Println("locked:     ", cfg.PriceLocked)
	fmt.Println("biometric:  ", cfg.BiometricRequired)
	fmt.Println("endpoint:   ", cfg.NodeEndpoint)
	fmt.Println("complete:   ", cfg.IsComplete())
}

// printResult reports the outcome of a settings change. A warning that
// needs confirmation isn't an error, the change simply didn't happen.
func printResult(res settings.Result, err error) error {
	if err != nil {
		if res.Message != "" {
			return fmt.Errorf("%s: %s", res.Field, res.Message)
		}
		return err
	}

	switch res.Outcome {
	case settings.Warning:
		fmt.Printf("warning: %s: %s\n", res.Field, res.Message)
		if res.RequiresConfirmation {
			fmt.Println("nothing changed, repeat with --confirm")
		}
	default:
		fmt.Println("ok")
	}

	return nil
}
