package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"

	"github.com/adamwoolhether/trxsafe/app/services/payd/handlers"
	"github.com/adamwoolhether/trxsafe/foundation/events"
	"github.com/adamwoolhether/trxsafe/foundation/logger"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/broadcast"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/builder"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/history"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/policy"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/risk"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/signer"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/state"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/storage/disk"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/tracker"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/whitelist"
	"github.com/adamwoolhether/trxsafe/foundation/tron/node"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {
	// Construct app logger.
	log, err := logger.New("PAYD")
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Configuration
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:30s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			APIHost         string        `conf:"default:127.0.0.1:8080"`
			CORSOrigin      string        `conf:"default:*"`
			RateLimit       float64       `conf:"default:1"`
			RateBurst       int           `conf:"default:5"`
		}
		Node struct {
			Endpoint string        `conf:"default:https://api.trongrid.io"`
			APIKey   string        `conf:"mask"`
			Timeout  time.Duration `conf:"default:10s"`
		}
		Wallet struct {
			KeyPath string `conf:"default:zdata/wallet.ecdsa"`
		}
		Store struct {
			Folder string `conf:"default:zdata/"`
		}
		Tracker struct {
			Interval time.Duration `conf:"default:3s"`
			GiveUp   time.Duration `conf:"default:10m"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "locked-down TRX payment daemon",
		},
	}

	const prefix = "PAYD"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}

		return fmt.Errorf("parsing config: %w", err)
	}

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// App Starting
	var header = `
	████████╗██████╗ ██╗  ██╗███████╗ █████╗ ███████╗███████╗
	╚══██╔══╝██╔══██╗╚██╗██╔╝██╔════╝██╔══██╗██╔════╝██╔════╝
	   ██║   ██████╔╝ ╚███╔╝ ███████╗███████║█████╗  █████╗
	   ██║   ██╔══██╗ ██╔██╗ ╚════██║██╔══██║██╔══╝  ██╔══╝
	   ██║   ██║  ██║██╔╝ ██╗███████║██║  ██║██║     ███████╗
	   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═╝     ╚══════╝`
	fmt.Println(header)

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Policy Support

	// A policy that doesn't hold its own invariants is a build defect.
	pol := policy.Default()
	if err := pol.Assert(); err != nil {
		return fmt.Errorf("security policy: %w", err)
	}
	log.Infow("startup", "status", "policy asserted", "allowed", pol.Allowed(), "forbidden", pol.Forbidden())

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Storage Support
	store, err := disk.New(cfg.Store.Folder)
	if err != nil {
		return fmt.Errorf("unable to open store: %w", err)
	}

	mgr, err := settings.NewManager(store, pol)
	if err != nil {
		return err
	}

	records, err := store.History()
	if err != nil {
		return fmt.Errorf("unable to load history: %w", err)
	}
	recorder := history.New(records, store.SaveHistory)

	entries, err := store.Whitelist()
	if err != nil {
		return fmt.Errorf("unable to load whitelist: %w", err)
	}
	book := whitelist.New(entries, store.SaveWhitelist)

	log.Infow("startup", "status", "store loaded", "folder", store.Path(), "records", len(records), "whitelist", len(entries))

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Payment Support
	evts := events.New()
	ev := logger.EvHandler(log, evts.Send)

	client, err := node.New(node.Config{
		Endpoint: cfg.Node.Endpoint,
		APIKey:   cfg.Node.APIKey,
		Timeout:  cfg.Node.Timeout,
	})
	if err != nil {
		return err
	}

	verifier := verify.New(pol)

	local, err := signer.LoadLocal(cfg.Wallet.KeyPath, verifier)
	if err != nil {
		return fmt.Errorf("unable to load private key for wallet: %w", err)
	}
	log.Infow("startup", "status", "wallet loaded", "address", local.Address())

	bc := broadcast.New(broadcast.Config{
		Node:      client,
		Verifier:  verifier,
		Recorder:  recorder,
		EvHandler: ev,
	})

	st, err := state.New(state.Config{
		Settings:    mgr,
		Verifier:    verifier,
		Builder:     builder.New(verifier, nil),
		Risk:        risk.New(verifier, book),
		Signer:      local,
		Broadcaster: bc,
		Node:        client,
		NodeTimeout: cfg.Node.Timeout,
		EvHandler:   ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	trk := tracker.New(tracker.Config{
		Confirmer: bc,
		Interval:  cfg.Tracker.Interval,
		Timeout:   cfg.Node.Timeout,
		GiveUp:    cfg.Tracker.GiveUp,
		EvHandler: ev,
	})
	trk.Run()
	st.Tracker = trk

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminal signal
	// from the OS. Signal package requires a buffered channel.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// User a buffered channel to listen for errors from listener. A buffered
	// channel is used so goroutine can exit if the error isn't collected.
	serverErrors := make(chan error, 1)

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Start API Service
	log.Infow("startup", "status", "initializing V1 API support")

	// Construct the mux for the API calls.
	apiMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:    shutdown,
		Log:         log,
		State:       st,
		Book:        book,
		Evts:        evts,
		CORSOrigin:  cfg.Web.CORSOrigin,
		RateLimit:   cfg.Web.RateLimit,
		RateBurst:   cfg.Web.RateBurst,
		NodeTimeout: cfg.Node.Timeout,
	})

	// Construct a server to service the requests against the mux.
	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Shutdown

	// Block main waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server errors: %w", err)
	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Ask listener to shutdown and shed load.
		log.Infow("shutdown", "status", "shutdown API started")
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("couldn't stop API service gracefully: %w", err)
		}
	}

	return nil
}
