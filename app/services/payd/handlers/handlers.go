// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	v1 "github.com/adamwoolhether/trxsafe/app/services/payd/handlers/v1"
	"github.com/adamwoolhether/trxsafe/business/web/v1/mid"
	"github.com/adamwoolhether/trxsafe/foundation/events"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/state"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/whitelist"
	"github.com/adamwoolhether/trxsafe/foundation/web"
)

// MuxConfig contains all mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown    chan os.Signal
	Log         *zap.SugaredLogger
	State       *state.State
	Book        *whitelist.Book
	Evts        *events.Events
	CORSOrigin  string
	RateLimit   float64
	RateBurst   int
	NodeTimeout time.Duration
}

// PublicMux constructs a http.Handler with all application routes defined.
func PublicMux(cfg MuxConfig) http.Handler {
	origin := cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Cors(origin),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests if config has been provided.
	// Don't forget to apply the CORS middleware to the routes that need it.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors(origin))

	// Load the v1 routes.
	v1.PublicRoutes(app, v1.Config{
		Log:         cfg.Log,
		State:       cfg.State,
		Book:        cfg.Book,
		Evts:        cfg.Evts,
		Limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		NodeTimeout: cfg.NodeTimeout,
	})

	return app
}
