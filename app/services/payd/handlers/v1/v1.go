// Package v1 contains the full set of handler functions and
// routes supported by the v1 web api.
package v1

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/adamwoolhether/trxsafe/app/services/payd/handlers/v1/public"
	"github.com/adamwoolhether/trxsafe/business/web/v1/mid"
	"github.com/adamwoolhether/trxsafe/foundation/events"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/state"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/whitelist"
	"github.com/adamwoolhether/trxsafe/foundation/web"
)

const version = "v1"

// Config contains all mandatory systems required by handlers
type Config struct {
	Log         *zap.SugaredLogger
	State       *state.State
	Book        *whitelist.Book
	Evts        *events.Events
	Limiter     *rate.Limiter
	NodeTimeout time.Duration
}

// PublicRoutes binds all version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:         cfg.Log,
		State:       cfg.State,
		Book:        cfg.Book,
		Evts:        cfg.Evts,
		NodeTimeout: cfg.NodeTimeout,
	}

	// Every route that reaches the node is rate limited.
	limit := mid.RateLimit(cfg.Limiter)

	app.Handle(http.MethodGet, version, "/events", pbl.Events)

	app.Handle(http.MethodGet, version, "/config", pbl.Config)
	app.Handle(http.MethodPut, version, "/config", pbl.SaveConfig)
	app.Handle(http.MethodPut, version, "/config/seller", pbl.SetSeller)
	app.Handle(http.MethodPut, version, "/config/price", pbl.SetPrice)
	app.Handle(http.MethodPut, version, "/config/multiplier", pbl.SetMultiplier)
	app.Handle(http.MethodPut, version, "/config/endpoint", pbl.SetEndpoint)
	app.Handle(http.MethodPut, version, "/config/biometric", pbl.SetBiometric)
	app.Handle(http.MethodPost, version, "/config/unlock", pbl.UnlockPrice)

	app.Handle(http.MethodGet, version, "/whitelist", pbl.Whitelist)
	app.Handle(http.MethodPost, version, "/whitelist", pbl.AddWhitelist)
	app.Handle(http.MethodDelete, version, "/whitelist/:address", pbl.RemoveWhitelist)

	app.Handle(http.MethodPost, version, "/payments", pbl.Prepare, limit)
	app.Handle(http.MethodGet, version, "/payments", pbl.Payments)
	app.Handle(http.MethodGet, version, "/payments/:id", pbl.Payment)
	app.Handle(http.MethodDelete, version, "/payments/:id", pbl.Discard)
	app.Handle(http.MethodPost, version, "/payments/:id/submit", pbl.Submit, limit)
	app.Handle(http.MethodGet, version, "/payments/:id/qr", pbl.Fragments)
	app.Handle(http.MethodGet, version, "/payments/:id/qr/:index", pbl.FragmentPNG)
	app.Handle(http.MethodPost, version, "/payments/:id/import", pbl.Import, limit)

	app.Handle(http.MethodGet, version, "/history", pbl.History)
	app.Handle(http.MethodGet, version, "/history/:txid", pbl.Record)
	app.Handle(http.MethodGet, version, "/tx/:txid/status", pbl.Status, limit)
	app.Handle(http.MethodGet, version, "/balance", pbl.Balance, limit)
}
