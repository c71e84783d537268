package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adamwoolhether/trxsafe/foundation/logger"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/broadcast"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/builder"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/history"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/policy"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/risk"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/signer"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/state"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/storage/disk"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/whitelist"
	"github.com/adamwoolhether/trxsafe/foundation/tron/node"
)

// wallet is everything a command needs, restored from the store folder.
type wallet struct {
	ev       func(v string, args ...any)
	store    *disk.Disk
	settings *settings.Manager
	book     *whitelist.Book
	recorder *history.Recorder
	verifier *verify.Verifier
	node     *node.Client
	bc       *broadcast.Broadcaster
	timeout  time.Duration
}

func openWallet(cmd *cobra.Command) (*wallet, error) {
	flags := cmd.Flags()

	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, err
	}

	log := zap.NewNop().Sugar()
	if verbose {
		if log, err = logger.New("WALLET", "stderr"); err != nil {
			return nil, fmt.Errorf("constructing logger: %w", err)
		}
	}
	ev := logger.EvHandler(log)

	pol := policy.Default()
	if err := pol.Assert(); err != nil {
		return nil, fmt.Errorf("security policy: %w", err)
	}

	folder, err := flags.GetString("store")
	if err != nil {
		return nil, err
	}
	store, err := disk.New(folder)
	if err != nil {
		return nil, fmt.Errorf("unable to open store: %w", err)
	}

	mgr, err := settings.NewManager(store, pol)
	if err != nil {
		return nil, err
	}

	records, err := store.History()
	if err != nil {
		return nil, fmt.Errorf("unable to load history: %w", err)
	}
	recorder := history.New(records, store.SaveHistory)

	entries, err := store.Whitelist()
	if err != nil {
		return nil, fmt.Errorf("unable to load whitelist: %w", err)
	}
	book := whitelist.New(entries, store.SaveWhitelist)

	endpoint, err := flags.GetString("node")
	if err != nil {
		return nil, err
	}
	apiKey, err := flags.GetString("api-key")
	if err != nil {
		return nil, err
	}
	timeout, err := flags.GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	client, err := node.New(node.Config{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, err
	}

	verifier := verify.New(pol)

	w := wallet{
		ev:       ev,
		store:    store,
		settings: mgr,
		book:     book,
		recorder: recorder,
		verifier: verifier,
		node:     client,
		timeout:  timeout,
		bc: broadcast.New(broadcast.Config{
			Node:      client,
			Verifier:  verifier,
			Recorder:  recorder,
			EvHandler: ev,
		}),
	}

	return &w, nil
}

// signer loads the private key of the selected account.
func (w *wallet) signer(cmd *cobra.Command) (*signer.Local, error) {
	acctName, err := cmd.Flags().GetString("account")
	if err != nil {
		return nil, err
	}
	path, err := cmd.Flags().GetString("account-path")
	if err != nil {
		return nil, err
	}

	local, err := signer.LoadLocal(keyPath(acctName, path), w.verifier)
	if err != nil {
		return nil, fmt.Errorf("unable to load private key for wallet: %w", err)
	}

	return local, nil
}

// state constructs the payment state around the signer.
func (w *wallet) state(s signer.Signer) (*state.State, error) {
	return state.New(state.Config{
		Settings:    w.settings,
		Verifier:    w.verifier,
		Builder:     builder.New(w.verifier, nil),
		Risk:        risk.New(w.verifier, w.book),
		Signer:      s,
		Broadcaster: w.bc,
		Node:        w.node,
		NodeTimeout: w.timeout,
		EvHandler:   w.ev,
	})
}

// userErr replaces classified payment errors with what the user is shown.
func userErr(err error) error {
	if _, ok := payerr.As(err); !ok {
		return err
	}
	return errors.New(payerr.UserMessage(err))
}
