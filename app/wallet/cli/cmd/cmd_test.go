package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/broadcast"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/broadcast/mocks"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/builder"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/history"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/policy"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/qr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/risk"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/signer"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/state"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/whitelist"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/node"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

func TestKeyPath(t *testing.T) {
	assert.Equal(t, filepath.Join("keys", "alice.ecdsa"), keyPath("alice", "keys"))
	assert.Equal(t, filepath.Join("keys", "alice.ecdsa"), keyPath("alice.ecdsa", "keys"))
}

func TestConfirmRisk(t *testing.T) {
	assert.NoError(t, confirmRisk(risk.Result{Level: risk.Pass}, false))
	assert.NoError(t, confirmRisk(risk.Result{Level: risk.Warn, RequiresSecondConfirmation: true}, true))

	err := confirmRisk(risk.Result{Level: risk.Warn, Message: "new seller", RequiresSecondConfirmation: true}, false)
	assert.True(t, errors.Is(err, state.ErrConfirmationRequired))

	err = confirmRisk(risk.Result{Level: risk.Block, Message: "amount mismatch"}, true)
	assert.True(t, errors.Is(err, state.ErrBlocked))
}

func TestFragmentFiles(t *testing.T) {
	dir := t.TempDir()
	frags := qr.Split(strings.Repeat("a", 1000) + "payload")

	require.NoError(t, writeFragments(dir, "unsigned", frags, 128))

	got, err := readFragments(filepath.Join(dir, "unsigned.txt"))
	require.NoError(t, err)
	assert.Equal(t, frags, got)

	for i := range frags {
		png, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("unsigned-%02d.png", i+1)))
		require.NoError(t, err)
		assert.Equal(t, []byte("\x89PNG"), png[:4])
	}
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type importFixture struct {
	wallet *wallet
	node   *mocks.MockNode
	local  *signer.Local
	cfg    settings.Config
}

func newImportFixture(t *testing.T) importFixture {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sellerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	seller := address.FromPublicKey(sellerKey.PublicKey)

	v := verify.New(policy.Default())

	mgr, err := settings.NewManager(&settings.MemoryStore{}, v.Policy())
	require.NoError(t, err)
	_, err = mgr.SetSellerAddress(seller.String(), seller.String())
	require.NoError(t, err)

	cfg := mgr.Snapshot()
	cfg.SellerAddress = seller
	cfg.PricePerUnit = 5_000_000
	cfg.Multiplier = 3
	_, err = mgr.SaveConfig(cfg)
	require.NoError(t, err)

	book := whitelist.New(nil, nil)
	require.NoError(t, book.Add(whitelist.Entry{Name: "shop", Address: seller, IsWhitelisted: true}))

	mock := mocks.NewMockNode(gomock.NewController(t))
	recorder := history.New(nil, nil)

	w := wallet{
		ev:       func(string, ...any) {},
		settings: mgr,
		book:     book,
		recorder: recorder,
		verifier: v,
		timeout:  time.Second,
		bc: broadcast.New(broadcast.Config{
			Node:     mock,
			Verifier: v,
			Recorder: recorder,
		}),
	}

	return importFixture{
		wallet: &w,
		node:   mock,
		local:  signer.NewLocal(key, v),
		cfg:    mgr.Snapshot(),
	}
}

func (f importFixture) export(t *testing.T, height int64) (wire.Transaction, []string) {
	t.Helper()

	id, _ := hex.DecodeString("0000000003a1b2c3d4e5f60718293a4b5c6d7e8f9011223344556677889900aa")
	ref := builder.RefBlock{Number: height, ID: id}

	tx, err := builder.New(f.wallet.verifier, nil).Build(f.local.Address(), f.cfg, &ref)
	require.NoError(t, err)

	u, err := qr.NewUnsigned(f.wallet.verifier, tx, height)
	require.NoError(t, err)

	frags, err := qr.Fragments(u)
	require.NoError(t, err)

	return tx, frags
}

func TestRunImport(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		f := newImportFixture(t)
		tx, unsigned := f.export(t, 0x03a1b2c3)

		signed, err := signer.NewCold(f.local, f.wallet.verifier).SignFragments(ctx, unsigned, f.cfg)
		require.NoError(t, err)

		f.node.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(node.BroadcastResult{OK: true}, nil)

		txid, err := runImport(ctx, f.wallet, unsigned, signed, false)
		require.NoError(t, err)
		assert.Equal(t, tx.ID(), txid)

		rec, found := f.wallet.recorder.Get(txid)
		require.True(t, found)
		assert.Equal(t, history.StatusSuccess, rec.Status)
	})

	t.Run("signed a different payment", func(t *testing.T) {
		f := newImportFixture(t)
		_, unsigned := f.export(t, 0x03a1b2c3)
		_, other := f.export(t, 0x03a1b2c4)

		signed, err := signer.NewCold(f.local, f.wallet.verifier).SignFragments(ctx, other, f.cfg)
		require.NoError(t, err)

		_, err = runImport(ctx, f.wallet, unsigned, signed, false)
		require.Error(t, err)
		assert.Equal(t, "data tampered: rawData", err.Error())
		assert.Empty(t, f.wallet.recorder.List())
	})
}
