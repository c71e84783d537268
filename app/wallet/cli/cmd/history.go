package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/history"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/tracker"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the recorded transactions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		today, err := cmd.Flags().GetBool("today")
		if err != nil {
			return err
		}

		records := w.recorder.List()
		if today {
			records = w.recorder.Today(time.Now())
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tTXID\tTO\tAMOUNT\tSTATUS\tBLOCK")
		for _, rec := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
				rec.Time().Format(time.DateTime), rec.TxID, rec.To, amount.Format(rec.Amount), rec.Status, rec.BlockHeight)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Printf("%d successful of %d\n", w.recorder.CountSuccess(), len(w.recorder.List()))
		return nil
	},
}

var historySyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Ask the node about every pending transaction once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		trk := tracker.New(tracker.Config{
			Confirmer: w.bc,
			Timeout:   w.timeout,
			EvHandler: w.ev,
		})

		n := trk.Poll(cmd.Context())
		fmt.Printf("%d of %d pending updated\n", n, n+len(w.bc.Pending()))
		return nil
	},
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <txid>",
	Short: "Ask the node what became of a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		return runStatus(cmd.Context(), w, args[0])
	},
}

func init() {
	rootCmd.AddCommand(historyCmd, statusCmd)
	historyCmd.AddCommand(historySyncCmd)
	historyCmd.Flags().Bool("today", false, "Only list transactions made since midnight.")
}

func runStatus(ctx context.Context, w *wallet, txid string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	st := w.bc.Status(ctx, txid)

	fmt.Println("status:", st.Kind)
	if st.BlockHeight > 0 {
		fmt.Println("block: ", st.BlockHeight)
		fmt.Println("fee:   ", amount.Format(st.Fee), "TRX")
	}
	if st.Reason != "" {
		fmt.Println("reason:", st.Reason)
	}

	changed, err := w.bc.Apply(txid, st)
	if err != nil {
		return err
	}
	if changed {
		rec, _ := w.recorder.Get(txid)
		if rec.Status == history.StatusFailure {
			fmt.Println("history updated: failed")
		} else {
			fmt.Println("history updated")
		}
	}

	return nil
}
