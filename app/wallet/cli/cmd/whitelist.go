package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/whitelist"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
)

// whitelistCmd groups the trusted address commands.
var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Manage trusted addresses",
}

var whitelistAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Trust an address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		a, err := address.ParseDestination(args[1])
		if err != nil {
			return err
		}

		notes, err := cmd.Flags().GetString("notes")
		if err != nil {
			return err
		}

		return w.book.Add(whitelist.Entry{Name: args[0], Address: a, IsWhitelisted: true, Notes: notes})
	},
}

var whitelistRemoveCmd = &cobra.Command{
	Use:     "rm <address>",
	Aliases: []string{"remove"},
	Short:   "Stop trusting an address",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		a, err := address.Parse(args[0])
		if err != nil {
			return err
		}

		return w.book.Remove(a)
	},
}

var whitelistListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List trusted addresses",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tADDRESS\tADDED\tNOTES")
		for _, e := range w.book.List() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Address, e.CreateTime.Format("2006-01-02"), e.Notes)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(whitelistCmd)
	whitelistCmd.AddCommand(whitelistAddCmd, whitelistRemoveCmd, whitelistListCmd)

	whitelistAddCmd.Flags().String("notes", "", "Free text kept with the entry.")
}
