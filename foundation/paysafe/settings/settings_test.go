package settings_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/policy"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
)

func newAddress(t *testing.T) address.Address {
	t.Helper()

	pk, err := crypto.GenerateKey()
	require.NoError(t, err)

	return address.FromPublicKey(pk.PublicKey)
}

func TestValidatePrice(t *testing.T) {
	v := settings.NewValidator(policy.Default())

	tests := []struct {
		price   amount.Micro
		outcome settings.Outcome
	}{
		{0, settings.Error},
		{-5, settings.Error},
		{999, settings.Error},
		{1_000, settings.Success},
		{5_000_000, settings.Success},
		{10_000_000, settings.Success},
		{10_000_001, settings.Error},
	}

	for _, tt := range tests {
		r := v.ValidatePrice(tt.price)
		assert.Equal(t, tt.outcome, r.Outcome, "price %d", tt.price)
		if !r.OK() {
			assert.Equal(t, settings.FieldPrice, r.Field)
		}
	}
}

func TestValidatePriceText(t *testing.T) {
	v := settings.NewValidator(policy.Default())

	p, r := v.ValidatePriceText("5")
	require.True(t, r.OK())
	assert.Equal(t, amount.Micro(5_000_000), p)

	p, r = v.ValidatePriceText("0.001")
	require.True(t, r.OK())
	assert.Equal(t, amount.Micro(1_000), p)

	_, r = v.ValidatePriceText("10.000001")
	assert.Equal(t, settings.Error, r.Outcome)
	assert.Contains(t, r.Message, "out of range")

	_, r = v.ValidatePriceText("0.0005")
	assert.Equal(t, settings.Error, r.Outcome)

	_, r = v.ValidatePriceText("abc")
	assert.Equal(t, "invalid amount format", r.Message)
}

func TestValidateMultiplier(t *testing.T) {
	v := settings.NewValidator(policy.Default())

	for _, m := range []int{1, 10} {
		assert.True(t, v.ValidateMultiplier(m).OK(), m)
	}
	for _, m := range []int{0, 11, -1} {
		assert.False(t, v.ValidateMultiplier(m).OK(), m)
	}

	n, r := v.ValidateMultiplierText(" 3 ")
	require.True(t, r.OK())
	assert.Equal(t, 3, n)

	_, r = v.ValidateMultiplierText("2.5")
	assert.Equal(t, settings.Error, r.Outcome)
}

func TestValidateConfigOrder(t *testing.T) {
	v := settings.NewValidator(policy.Default())

	r := v.ValidateConfig(settings.Config{PricePerUnit: 1, Multiplier: 0})
	assert.Equal(t, settings.FieldSellerAddress, r.Field)

	r = v.ValidateConfig(settings.Config{SellerAddress: newAddress(t), PricePerUnit: 1, Multiplier: 0})
	assert.Equal(t, settings.FieldPrice, r.Field)

	r = v.ValidateConfig(settings.Config{SellerAddress: newAddress(t), PricePerUnit: 1_000, Multiplier: 0})
	assert.Equal(t, settings.FieldMultiplier, r.Field)

	r = v.ValidateConfig(settings.Config{SellerAddress: newAddress(t), PricePerUnit: 1_000, Multiplier: 1})
	assert.True(t, r.OK())
}

func TestTotalAndComplete(t *testing.T) {
	cfg := settings.Config{SellerAddress: newAddress(t), PricePerUnit: 5_000_000, Multiplier: 3}

	total, err := cfg.Total()
	require.NoError(t, err)
	assert.Equal(t, amount.Micro(15_000_000), total)
	assert.True(t, cfg.IsComplete())

	assert.False(t, settings.New().IsComplete())
}

func TestManagerFirstTimeAddress(t *testing.T) {
	m, err := settings.NewManager(&settings.MemoryStore{}, policy.Default())
	require.NoError(t, err)
	require.True(t, m.Snapshot().FirstTimeAddress)

	seller := newAddress(t)

	r, err := m.SetSellerAddress(seller.String(), "")
	require.NoError(t, err)
	assert.Equal(t, settings.Warning, r.Outcome)
	assert.True(t, r.RequiresConfirmation)
	assert.True(t, m.Snapshot().SellerAddress.IsZero())

	r, err = m.SetSellerAddress(seller.String(), seller.String())
	require.NoError(t, err)
	assert.True(t, r.OK())
	assert.Equal(t, seller, m.Snapshot().SellerAddress)
	assert.False(t, m.Snapshot().FirstTimeAddress)

	// Once stored, no confirmation is needed.
	other := newAddress(t)
	r, err = m.SetSellerAddress(other.String(), "")
	require.NoError(t, err)
	assert.True(t, r.OK())
}

func TestManagerSaveConfigLocksPrice(t *testing.T) {
	store := settings.MemoryStore{}
	m, err := settings.NewManager(&store, policy.Default())
	require.NoError(t, err)

	seller := newAddress(t)
	_, err = m.SetSellerAddress(seller.String(), seller.String())
	require.NoError(t, err)

	cfg := settings.Config{
		SellerAddress: seller,
		PricePerUnit:  5_000_000,
		Multiplier:    3,
		NodeEndpoint:  "https://api.trongrid.io",
	}

	r, err := m.SaveConfig(cfg)
	require.NoError(t, err)
	require.True(t, r.OK())

	reloaded, err := settings.NewManager(&store, policy.Default())
	require.NoError(t, err)

	want := cfg
	want.PriceLocked = true
	assert.Equal(t, want, reloaded.Snapshot())

	// Locked price can't change through either path.
	_, err = m.SetPrice("6")
	assert.ErrorIs(t, err, settings.ErrPriceLocked)
	assert.True(t, payerr.Is(err, payerr.KindBadInput))

	changed := cfg
	changed.PricePerUnit = 6_000_000
	_, err = m.SaveConfig(changed)
	assert.ErrorIs(t, err, settings.ErrPriceLocked)

	// Saving again with the lock cleared in the input keeps it sticky.
	_, err = m.SaveConfig(cfg)
	require.NoError(t, err)
	assert.True(t, m.Snapshot().PriceLocked)

	require.NoError(t, m.UnlockPrice())
	_, err = m.SetPrice("6")
	require.NoError(t, err)
	assert.Equal(t, amount.Micro(6_000_000), m.Snapshot().PricePerUnit)
}

func TestManagerChangingSellerClearsPrice(t *testing.T) {
	m, err := settings.NewManager(&settings.MemoryStore{}, policy.Default())
	require.NoError(t, err)

	seller := newAddress(t)
	_, err = m.SetSellerAddress(seller.String(), seller.String())
	require.NoError(t, err)

	_, err = m.SaveConfig(settings.Config{SellerAddress: seller, PricePerUnit: 2_000_000, Multiplier: 2})
	require.NoError(t, err)
	require.True(t, m.Snapshot().PriceLocked)

	_, err = m.SetSellerAddress(newAddress(t).String(), "")
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.Equal(t, amount.Micro(0), snap.PricePerUnit)
	assert.False(t, snap.PriceLocked)
	assert.False(t, snap.IsComplete())
}

func TestManagerSaveConfigNeedsConfirmedSeller(t *testing.T) {
	store := settings.MemoryStore{}
	m, err := settings.NewManager(&store, policy.Default())
	require.NoError(t, err)

	seller := newAddress(t)
	cfg := settings.Config{SellerAddress: seller, PricePerUnit: 2_000_000, Multiplier: 2}

	r, err := m.SaveConfig(cfg)
	assert.ErrorIs(t, err, settings.ErrSellerUnconfirmed)
	assert.True(t, payerr.Is(err, payerr.KindBadInput))
	assert.Equal(t, settings.FieldSellerAddress, r.Field)

	snap := m.Snapshot()
	assert.True(t, snap.SellerAddress.IsZero())
	assert.True(t, snap.FirstTimeAddress)
	assert.False(t, snap.PriceLocked)

	// Clearing the flag in the input doesn't skip the confirmation.
	bypass := cfg
	bypass.FirstTimeAddress = false
	_, err = m.SaveConfig(bypass)
	assert.ErrorIs(t, err, settings.ErrSellerUnconfirmed)
	assert.True(t, m.Snapshot().SellerAddress.IsZero())

	_, err = m.SetSellerAddress(seller.String(), seller.String())
	require.NoError(t, err)

	// A confirmed seller can't be swapped through a full save.
	other := cfg
	other.SellerAddress = newAddress(t)
	_, err = m.SaveConfig(other)
	assert.ErrorIs(t, err, settings.ErrSellerUnconfirmed)
	assert.Equal(t, seller, m.Snapshot().SellerAddress)

	_, err = m.SaveConfig(cfg)
	require.NoError(t, err)

	snap = m.Snapshot()
	assert.Equal(t, seller, snap.SellerAddress)
	assert.False(t, snap.FirstTimeAddress)
	assert.True(t, snap.PriceLocked)
}

func TestManagerRejectsBadInput(t *testing.T) {
	m, err := settings.NewManager(&settings.MemoryStore{}, policy.Default())
	require.NoError(t, err)

	r, err := m.SetMultiplier("11")
	assert.True(t, payerr.Is(err, payerr.KindBadInput))
	assert.Equal(t, settings.FieldMultiplier, r.Field)

	r, err = m.SetPrice("0.0009")
	assert.Error(t, err)
	assert.Equal(t, settings.FieldPrice, r.Field)

	_, err = m.SetNodeEndpoint("not a url")
	assert.Error(t, err)

	_, err = m.SetSellerAddress("", "")
	assert.Error(t, err)

	require.NoError(t, m.SetBiometric(true))
	assert.True(t, m.Snapshot().BiometricRequired)
}
