// Package public maintains the group of handlers for the payment API.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	v1 "github.com/adamwoolhether/trxsafe/business/web/v1"
	"github.com/adamwoolhether/trxsafe/foundation/events"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/history"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/qr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/state"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/whitelist"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
	"github.com/adamwoolhether/trxsafe/foundation/web"
)

// Handlers manages the set of payment endpoints.
type Handlers struct {
	Log         *zap.SugaredLogger
	State       *state.State
	Book        *whitelist.Book
	Evts        *events.Events
	NodeTimeout time.Duration
	WS          websocket.Upgrader
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////
// Settings

// Config returns the payment contract.
func (h Handlers) Config(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, toConfig(h.State.Settings().Snapshot()), http.StatusOK)
}

// SaveConfig stores a complete payment contract and locks its price.
func (h Handlers) SaveConfig(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req saveConfig
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	mgr := h.State.Settings()
	vld := mgr.Validator()

	cfg := mgr.Snapshot()

	seller, res := vld.ValidateSellerAddress(req.SellerAddress)
	if !res.OK() {
		return h.respondResult(ctx, w, res)
	}
	price, res := vld.ValidatePriceText(req.Price)
	if !res.OK() {
		return h.respondResult(ctx, w, res)
	}
	multiplier, res := vld.ValidateMultiplierText(req.Multiplier)
	if !res.OK() {
		return h.respondResult(ctx, w, res)
	}

	cfg.SellerAddress = seller
	cfg.PricePerUnit = price
	cfg.Multiplier = multiplier
	cfg.NodeEndpoint = req.NodeEndpoint
	cfg.BiometricRequired = req.BiometricRequired

	res, err := mgr.SaveConfig(cfg)
	if errors.Is(err, settings.ErrSellerUnconfirmed) {
		return v1.NewRequestError(err, http.StatusConflict)
	}
	if err != nil {
		return err
	}

	return h.respondResult(ctx, w, res)
}

// SetSeller stores the seller address.
func (h Handlers) SetSeller(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req setSeller
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	res, err := h.State.Settings().SetSellerAddress(req.Address, req.Confirmation)
	if err != nil {
		return err
	}

	return h.respondResult(ctx, w, res)
}

// SetPrice stores the unit price.
func (h Handlers) SetPrice(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req setPrice
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	res, err := h.State.Settings().SetPrice(req.Price)
	if err != nil {
		return err
	}

	return h.respondResult(ctx, w, res)
}

// SetMultiplier stores the multiplier.
func (h Handlers) SetMultiplier(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req setMultiplier
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	res, err := h.State.Settings().SetMultiplier(req.Multiplier)
	if err != nil {
		return err
	}

	return h.respondResult(ctx, w, res)
}

// SetEndpoint stores the informational node endpoint.
func (h Handlers) SetEndpoint(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req setEndpoint
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	res, err := h.State.Settings().SetNodeEndpoint(req.Endpoint)
	if err != nil {
		return err
	}

	return h.respondResult(ctx, w, res)
}

// SetBiometric toggles the biometric requirement.
func (h Handlers) SetBiometric(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req setBiometric
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := h.State.Settings().SetBiometric(req.Required); err != nil {
		return err
	}

	return h.respondResult(ctx, w, settings.Result{Outcome: settings.Success})
}

// UnlockPrice clears the price lock.
func (h Handlers) UnlockPrice(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.Settings().UnlockPrice(); err != nil {
		return err
	}

	return h.respondResult(ctx, w, settings.Result{Outcome: settings.Success})
}

func (h Handlers) respondResult(ctx context.Context, w http.ResponseWriter, res settings.Result) error {
	resp := result{
		Outcome:              res.Outcome.String(),
		Field:                res.Field,
		Message:              res.Message,
		RequiresConfirmation: res.RequiresConfirmation,
		Config:               toConfig(h.State.Settings().Snapshot()),
	}

	statusCode := http.StatusOK
	if res.Outcome == settings.Error {
		statusCode = http.StatusBadRequest
	}

	return web.Respond(ctx, w, resp, statusCode)
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////
// Whitelist

// Whitelist returns the book.
func (h Handlers) Whitelist(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Book.List(), http.StatusOK)
}

// AddWhitelist adds or replaces an entry of the book.
func (h Handlers) AddWhitelist(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req newEntry
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	a, err := address.ParseDestination(req.Address)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	e := whitelist.Entry{
		Name:          req.Name,
		Address:       a,
		IsWhitelisted: true,
		Notes:         req.Notes,
	}
	if err := h.Book.Add(e); err != nil {
		return err
	}

	e, err = h.Book.Get(a)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, e, http.StatusCreated)
}

// RemoveWhitelist deletes an entry of the book.
func (h Handlers) RemoveWhitelist(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	a, err := address.Parse(web.Param(r, "address"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	if err := h.Book.Remove(a); err != nil {
		if errors.Is(err, whitelist.ErrNotFound) {
			return v1.NewRequestError(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////
// Payments

// Prepare builds a payment to the seller and assesses its risk. With
// node_seeded set the node creates the transfer and it is checked instead.
func (h Handlers) Prepare(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from := h.State.Address()

	var req prepare
	if r.ContentLength > 0 {
		if err := web.Decode(r, &req); err != nil {
			return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
		}
	}
	if req.From != "" {
		a, err := address.ParseDestination(req.From)
		if err != nil {
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
		from = a
	}
	if from.IsZero() {
		return v1.NewRequestError(errors.New("no paying address"), http.StatusBadRequest)
	}

	prepareFn := h.State.Prepare
	if req.NodeSeeded {
		prepareFn = h.State.PrepareFromNode
	}

	p, err := prepareFn(ctx, from)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, p, http.StatusCreated)
}

// Payments returns the prepared payments.
func (h Handlers) Payments(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Payments(), http.StatusOK)
}

// Payment returns a prepared payment.
func (h Handlers) Payment(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	p, exists := h.State.Payment(web.Param(r, "id"))
	if !exists {
		return v1.NewRequestError(state.ErrNotFound, http.StatusNotFound)
	}

	return web.Respond(ctx, w, p, http.StatusOK)
}

// Discard drops a prepared payment.
func (h Handlers) Discard(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if !h.State.Discard(web.Param(r, "id")) {
		return v1.NewRequestError(state.ErrNotFound, http.StatusNotFound)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Submit signs and broadcasts a prepared payment.
func (h Handlers) Submit(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req submit
	if r.ContentLength > 0 {
		if err := web.Decode(r, &req); err != nil {
			return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
		}
	}

	id := web.Param(r, "id")
	h.Log.Infow("submit payment", "traceid", web.GetTraceID(ctx), "id", id, "confirmed", req.Confirmed)

	txid, err := h.State.Submit(ctx, id, req.Confirmed)
	if err != nil {
		return stateErr(err)
	}

	return web.Respond(ctx, w, submitted{TxID: txid}, http.StatusOK)
}

// Fragments returns the QR fragments of the unsigned envelope.
func (h Handlers) Fragments(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	envelope, err := h.State.Envelope(web.Param(r, "id"))
	if err != nil {
		return stateErr(err)
	}

	frags, err := qr.Fragments(envelope)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, fragments{Total: len(frags), Fragments: frags}, http.StatusOK)
}

// FragmentPNG renders one QR fragment of the unsigned envelope.
func (h Handlers) FragmentPNG(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	envelope, err := h.State.Envelope(web.Param(r, "id"))
	if err != nil {
		return stateErr(err)
	}

	frags, err := qr.Fragments(envelope)
	if err != nil {
		return err
	}

	idx, err := strconv.Atoi(web.Param(r, "index"))
	if err != nil || idx < 1 || idx > len(frags) {
		return v1.NewRequestError(fmt.Errorf("fragment index must be between 1 and %d", len(frags)), http.StatusBadRequest)
	}

	size := 512
	if s := r.URL.Query().Get("size"); s != "" {
		if size, err = strconv.Atoi(s); err != nil || size < 128 || size > 2048 {
			return v1.NewRequestError(errors.New("size must be between 128 and 2048"), http.StatusBadRequest)
		}
	}

	png, err := qr.Render(frags[idx-1], size)
	if err != nil {
		return err
	}

	return web.RespondBytes(ctx, w, png, "image/png", http.StatusOK)
}

// Import accepts the fragments of a signed envelope and broadcasts it.
func (h Handlers) Import(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req importSigned
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	id := web.Param(r, "id")
	h.Log.Infow("import signed payment", "traceid", web.GetTraceID(ctx), "id", id, "fragments", len(req.Fragments))

	txid, err := h.State.Import(ctx, id, req.Fragments, req.Confirmed)
	if err != nil {
		return stateErr(err)
	}

	return web.Respond(ctx, w, submitted{TxID: txid}, http.StatusOK)
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////
// Ledger

// History returns the recorded transactions, newest first.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	rec := h.State.Broadcaster().Recorder()

	records := rec.List()
	if r.URL.Query().Get("today") == "true" {
		records = rec.Today(time.Now())
	}
	if records == nil {
		records = []history.Record{}
	}

	return web.Respond(ctx, w, records, http.StatusOK)
}

// Record returns the recorded transaction for the txid.
func (h Handlers) Record(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	rec, exists := h.State.Broadcaster().Recorder().Get(web.Param(r, "txid"))
	if !exists {
		return v1.NewRequestError(errors.New("transaction not recorded"), http.StatusNotFound)
	}

	return web.Respond(ctx, w, rec, http.StatusOK)
}

// Status asks the node what became of a transaction.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txid := web.Param(r, "txid")

	ctx2, cancel := context.WithTimeout(ctx, h.NodeTimeout)
	defer cancel()

	st := h.State.Broadcaster().Status(ctx2, txid)

	resp := status{
		TxID:        txid,
		Status:      st.Kind.String(),
		BlockHeight: st.BlockHeight,
		Fee:         st.Fee,
		NetUsage:    st.NetUsage,
		EnergyUsage: st.EnergyUsage,
		Reason:      st.Reason,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Balance returns the balance of the paying address or of the address in
// the query string.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	a := h.State.Address()
	if q := r.URL.Query().Get("address"); q != "" {
		var err error
		if a, err = address.Parse(q); err != nil {
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
	}
	if a.IsZero() {
		return v1.NewRequestError(errors.New("no address"), http.StatusBadRequest)
	}

	ctx2, cancel := context.WithTimeout(ctx, h.NodeTimeout)
	defer cancel()

	bal, err := h.State.Broadcaster().Balance(ctx2, a)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, balance{Address: a, Balance: amount.Format(bal), Micro: bal}, http.StatusOK)
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////
// Events

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the pipeline.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the pipeline or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// stateErr maps the errors of the payment state onto request errors.
func stateErr(err error) error {
	switch {
	case errors.Is(err, state.ErrNotFound):
		return v1.NewRequestError(err, http.StatusNotFound)
	case errors.Is(err, state.ErrConfirmationRequired):
		return v1.NewRequestError(err, http.StatusConflict)
	case errors.Is(err, state.ErrBlocked):
		return v1.NewRequestError(err, http.StatusUnprocessableEntity)
	}

	return err
}
