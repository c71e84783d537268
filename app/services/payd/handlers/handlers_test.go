package handlers_test

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/adamwoolhether/trxsafe/app/services/payd/handlers"
	"github.com/adamwoolhether/trxsafe/foundation/events"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/broadcast"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/broadcast/mocks"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/builder"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/history"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/policy"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/risk"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/signer"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/state"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/whitelist"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/node"
)

type api struct {
	t      *testing.T
	mux    http.Handler
	node   *mocks.MockNode
	seller address.Address
}

func newAPI(t *testing.T) api {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sellerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	v := verify.New(policy.Default())
	mgr, err := settings.NewManager(&settings.MemoryStore{}, v.Policy())
	require.NoError(t, err)

	book := whitelist.New(nil, nil)
	mock := mocks.NewMockNode(gomock.NewController(t))

	bc := broadcast.New(broadcast.Config{
		Node:     mock,
		Verifier: v,
		Recorder: history.New(nil, nil),
	})

	st, err := state.New(state.Config{
		Settings:    mgr,
		Verifier:    v,
		Builder:     builder.New(v, nil),
		Risk:        risk.New(v, book),
		Signer:      signer.NewLocal(key, v),
		Broadcaster: bc,
		Node:        mock,
		NodeTimeout: time.Second,
	})
	require.NoError(t, err)

	mux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:    make(chan os.Signal, 1),
		Log:         zap.NewNop().Sugar(),
		State:       st,
		Book:        book,
		Evts:        events.New(),
		RateLimit:   100,
		RateBurst:   100,
		NodeTimeout: time.Second,
	})

	return api{t: t, mux: mux, node: mock, seller: address.FromPublicKey(sellerKey.PublicKey)}
}

func (a api) do(method, path string, body any, out any) int {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}

	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, r)

	if out != nil && w.Body.Len() > 0 {
		require.NoError(a.t, json.NewDecoder(w.Body).Decode(out))
	}

	return w.Code
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

func TestPaymentFlow(t *testing.T) {
	a := newAPI(t)

	var res struct {
		Outcome              string `json:"outcome"`
		RequiresConfirmation bool   `json:"requires_confirmation"`
		Config               struct {
			SellerAddress string `json:"seller_address"`
			Total         string `json:"total"`
			PriceLocked   bool   `json:"price_locked"`
			Complete      bool   `json:"complete"`
		} `json:"config"`
	}

	status := a.do(http.MethodPut, "/v1/config/seller", map[string]string{"address": a.seller.String()}, &res)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "warning", res.Outcome)
	assert.True(t, res.RequiresConfirmation)
	assert.Empty(t, res.Config.SellerAddress)

	status = a.do(http.MethodPut, "/v1/config/seller", map[string]string{"address": a.seller.String(), "confirmation": a.seller.String()}, &res)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", res.Outcome)

	status = a.do(http.MethodPut, "/v1/config", map[string]any{"seller_address": a.seller.String(), "price": "5", "multiplier": "3"}, &res)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, res.Config.PriceLocked)
	assert.True(t, res.Config.Complete)
	assert.Equal(t, "15", res.Config.Total)

	status = a.do(http.MethodPost, "/v1/whitelist", map[string]string{"name": "shop", "address": a.seller.String()}, nil)
	require.Equal(t, http.StatusCreated, status)

	id, _ := hex.DecodeString("0000000003a1b2c3d4e5f60718293a4b5c6d7e8f9011223344556677889900aa")
	a.node.EXPECT().NowBlock(gomock.Any()).Return(node.Block{Number: 0x03a1b2c3, ID: id}, nil)

	var p struct {
		ID     string `json:"id"`
		TxID   string `json:"txid"`
		Amount int64  `json:"amount_micro"`
		Risk   struct {
			Level string `json:"level"`
		} `json:"risk"`
	}
	status = a.do(http.MethodPost, "/v1/payments", nil, &p)
	require.Equal(t, http.StatusCreated, status)
	assert.EqualValues(t, 15_000_000, p.Amount)
	assert.Equal(t, "PASS", p.Risk.Level)

	var frags struct {
		Total     int      `json:"total"`
		Fragments []string `json:"fragments"`
	}
	status = a.do(http.MethodGet, "/v1/payments/"+p.ID+"/qr", nil, &frags)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, len(frags.Fragments), frags.Total)

	r := httptest.NewRequest(http.MethodGet, "/v1/payments/"+p.ID+"/qr/1?size=256", nil)
	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	a.node.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(node.BroadcastResult{OK: true}, nil)

	var sub struct {
		TxID string `json:"txid"`
	}
	status = a.do(http.MethodPost, "/v1/payments/"+p.ID+"/submit", map[string]bool{"confirmed": false}, &sub)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, p.TxID, sub.TxID)

	status = a.do(http.MethodGet, "/v1/payments/"+p.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	var records []history.Record
	status = a.do(http.MethodGet, "/v1/history", nil, &records)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, records, 1)
	assert.Equal(t, sub.TxID, records[0].TxID)
	assert.Equal(t, history.StatusSuccess, records[0].Status)
}

func TestPaymentNeedsConfiguration(t *testing.T) {
	a := newAPI(t)

	id, _ := hex.DecodeString("0000000003a1b2c3d4e5f60718293a4b5c6d7e8f9011223344556677889900aa")
	a.node.EXPECT().NowBlock(gomock.Any()).Return(node.Block{Number: 1, ID: id}, nil)

	var er struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	status := a.do(http.MethodPost, "/v1/payments", nil, &er)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "build_error", er.Kind)
	assert.Equal(t, "payment configuration is incomplete", er.Error)
}

func TestSettingsErrors(t *testing.T) {
	a := newAPI(t)

	var er struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	status := a.do(http.MethodPut, "/v1/config/price", map[string]string{"price": "10.000001"}, &er)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, er.Fields)

	status = a.do(http.MethodPost, "/v1/whitelist", map[string]string{"name": "", "address": "nope"}, &er)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "data validation error", er.Error)

	status = a.do(http.MethodPost, "/v1/payments/unknown/submit", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// A full save can't stand in for the seller confirmation.
	status = a.do(http.MethodPut, "/v1/config", map[string]any{"seller_address": a.seller.String(), "price": "5", "multiplier": "3"}, &er)
	assert.Equal(t, http.StatusConflict, status)

	var cfg struct {
		SellerAddress string `json:"seller_address"`
		PriceLocked   bool   `json:"price_locked"`
	}
	status = a.do(http.MethodGet, "/v1/config", nil, &cfg)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, cfg.SellerAddress)
	assert.False(t, cfg.PriceLocked)
}
