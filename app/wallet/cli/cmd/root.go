// Package cmd contains wallet app commands.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const keyExt = ".ecdsa"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "wallet",
	Short:         "Locked down TRX payment wallet",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("account-path", "p", "zwallet/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringP("account", "a", "private.ecdsa", "The account to use.")
	rootCmd.PersistentFlags().StringP("store", "s", "zwallet/store/", "Folder holding settings, history and whitelist.")
	rootCmd.PersistentFlags().StringP("node", "n", "https://api.trongrid.io", "Url of the full node.")
	rootCmd.PersistentFlags().String("api-key", "", "Api key sent to the node.")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "Deadline of every node request.")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log payment events to stderr.")
}

func keyPath(acctName, path string) string {
	if !strings.HasSuffix(acctName, keyExt) {
		acctName += keyExt
	}

	return filepath.Join(path, acctName)
}
