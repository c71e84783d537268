package risk_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/builder"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/policy"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/risk"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/whitelist"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

func newAddress(t *testing.T) address.Address {
	t.Helper()

	pk, err := crypto.GenerateKey()
	require.NoError(t, err)

	return address.FromPublicKey(pk.PublicKey)
}

func TestAssessPriceTiers(t *testing.T) {
	from, seller := newAddress(t), newAddress(t)

	book := whitelist.New(nil, nil)
	require.NoError(t, book.Add(whitelist.Entry{Name: "shop", Address: seller, IsWhitelisted: true}))

	v := verify.New(policy.Default())
	b := builder.New(v, nil)
	engine := risk.New(v, book)

	tests := []struct {
		price   amount.Micro
		level   risk.Level
		confirm bool
		msg     string
	}{
		{500, risk.Warn, false, "abnormally low price"},
		{999, risk.Warn, false, "abnormally low price"},
		{1_000, risk.Pass, false, ""},
		{1_000_000, risk.Pass, false, ""},
		{5_000_000, risk.Pass, false, ""},
		{10_000_000, risk.Pass, false, ""},
		{10_000_001, risk.Warn, true, "abnormally high price"},
	}

	for _, tt := range tests {
		t.Run(tt.price.String(), func(t *testing.T) {
			cfg := settings.Config{SellerAddress: seller, PricePerUnit: tt.price, Multiplier: 1}

			tx, err := b.Build(from, cfg, nil)
			require.NoError(t, err)

			res := engine.Assess(tx, cfg, from)
			assert.Equal(t, tt.level, res.Level)
			assert.Equal(t, tt.confirm, res.RequiresSecondConfirmation)
			assert.Equal(t, tt.msg, res.Message)
		})
	}
}

func TestAssessWhitelist(t *testing.T) {
	from, seller := newAddress(t), newAddress(t)

	v := verify.New(policy.Default())
	b := builder.New(v, nil)
	engine := risk.New(v, whitelist.New(nil, nil))

	cfg := settings.Config{SellerAddress: seller, PricePerUnit: 5_000_000, Multiplier: 3}
	tx, err := b.Build(from, cfg, nil)
	require.NoError(t, err)

	res := engine.Assess(tx, cfg, from)
	assert.Equal(t, risk.Warn, res.Level)
	assert.True(t, res.RequiresSecondConfirmation)
	assert.Equal(t, "destination is not in the whitelist", res.Message)

	cfg.PricePerUnit = 500
	tx, err = b.Build(from, cfg, nil)
	require.NoError(t, err)

	res = engine.Assess(tx, cfg, from)
	assert.Equal(t, risk.Warn, res.Level)
	assert.True(t, res.RequiresSecondConfirmation)
	assert.Equal(t, "abnormally low price; destination is not in the whitelist", res.Message)
}

func TestAssessBlocks(t *testing.T) {
	from, seller := newAddress(t), newAddress(t)

	book := whitelist.New(nil, nil)
	require.NoError(t, book.Add(whitelist.Entry{Name: "shop", Address: seller, IsWhitelisted: true}))

	v := verify.New(policy.Default())
	engine := risk.New(v, book)

	cfg := settings.Config{SellerAddress: seller, PricePerUnit: 5_000_000, Multiplier: 3}

	raw := wire.Raw{
		Timestamp:  1,
		Expiration: 60_001,
		Contracts: []wire.Contract{wire.NewTransfer(wire.TransferContract{
			OwnerAddress: from.Bytes(),
			ToAddress:    seller.Bytes(),
			Amount:       14_999_999,
		})},
	}

	res := engine.Assess(wire.Transaction{RawData: raw.Marshal()}, cfg, from)
	assert.Equal(t, risk.Block, res.Level)
	assert.Equal(t, "amount mismatch", res.Message)

	// A low price never softens a block.
	cfg.PricePerUnit = 500
	res = engine.Assess(wire.Transaction{}, cfg, from)
	assert.Equal(t, risk.Block, res.Level)
}
