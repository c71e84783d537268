package signer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/builder"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/policy"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/qr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/signer"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

type fixture struct {
	verifier *verify.Verifier
	builder  *builder.Builder
	local    *signer.Local
	cfg      settings.Config
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sellerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	v := verify.New(policy.Default())

	return fixture{
		verifier: v,
		builder:  builder.New(v, nil),
		local:    signer.NewLocal(key, v),
		cfg:      settings.Config{SellerAddress: address.FromPublicKey(sellerKey.PublicKey), PricePerUnit: 5_000_000, Multiplier: 3},
	}
}

func (f fixture) build(t *testing.T) wire.Transaction {
	t.Helper()

	tx, err := f.builder.Build(f.local.Address(), f.cfg, nil)
	require.NoError(t, err)
	return tx
}

func TestLocalSign(t *testing.T) {
	f := newFixture(t)
	tx := f.build(t)

	require.NoError(t, f.verifier.Transaction(tx, f.cfg, f.local.Address()))

	signed, err := f.local.Sign(context.Background(), tx, f.cfg)
	require.NoError(t, err)
	require.Len(t, signed.Signatures, 1)
	assert.Len(t, signed.Signatures[0], 65)
	assert.Equal(t, tx.RawData, signed.RawData)
	assert.Empty(t, tx.Signatures, "input is not mutated")

	require.NoError(t, f.verifier.Transaction(signed, f.cfg, f.local.Address()))

	who, err := signer.Recover(signed)
	require.NoError(t, err)
	assert.Equal(t, f.local.Address(), who)

	_, err = f.local.Sign(context.Background(), signed, f.cfg)
	assert.True(t, payerr.Is(err, payerr.KindSign))
}

func TestLocalRefuses(t *testing.T) {
	f := newFixture(t)
	tx := f.build(t)

	other := f.cfg
	other.Multiplier = 2

	_, err := f.local.Sign(context.Background(), tx, other)
	require.Error(t, err)
	assert.True(t, payerr.Is(err, payerr.KindSign))
	assert.Contains(t, err.Error(), "amount mismatch")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.local.Sign(ctx, tx, f.cfg)
	assert.True(t, payerr.Is(err, payerr.KindSign))
}

// coldCourier hands the fragments straight to a cold signer.
type coldCourier struct {
	cold   *signer.Cold
	cfg    settings.Config
	mutate func(fragments []string) []string
}

func (c coldCourier) Exchange(ctx context.Context, fragments []string) ([]string, error) {
	answer, err := c.cold.SignFragments(ctx, fragments, c.cfg)
	if err != nil {
		return nil, err
	}
	if c.mutate != nil {
		answer = c.mutate(answer)
	}
	return answer, nil
}

func TestAirGap(t *testing.T) {
	f := newFixture(t)
	tx := f.build(t)

	cold := signer.NewCold(f.local, f.verifier)
	online := signer.NewAirGap(f.local.Address(), f.verifier, coldCourier{cold: cold, cfg: f.cfg})

	signed, err := online.Sign(context.Background(), tx, f.cfg)
	require.NoError(t, err)
	require.Len(t, signed.Signatures, 1)
	assert.Equal(t, tx.RawData, signed.RawData)
	require.NoError(t, f.verifier.Transaction(signed, f.cfg, f.local.Address()))
}

func TestAirGapDetectsTampering(t *testing.T) {
	f := newFixture(t)
	tx := f.build(t)

	cold := signer.NewCold(f.local, f.verifier)

	lowerAmount := func(fragments []string) []string {
		text, err := qr.Assemble(fragments)
		require.NoError(t, err)

		s, err := qr.DecodeSigned(text)
		require.NoError(t, err)
		s.Amount--

		out, err := qr.Fragments(s)
		require.NoError(t, err)
		return out
	}

	online := signer.NewAirGap(f.local.Address(), f.verifier, coldCourier{cold: cold, cfg: f.cfg, mutate: lowerAmount})

	_, err := online.Sign(context.Background(), tx, f.cfg)
	require.Error(t, err)
	assert.Equal(t, "data tampered: amount", err.Error())
}

func TestAirGapWrongWallet(t *testing.T) {
	f := newFixture(t)
	tx := f.build(t)

	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	cold := signer.NewCold(signer.NewLocal(otherKey, f.verifier), f.verifier)

	online := signer.NewAirGap(f.local.Address(), f.verifier, coldCourier{cold: cold, cfg: f.cfg})

	_, err = online.Sign(context.Background(), tx, f.cfg)
	require.Error(t, err)
	assert.True(t, payerr.Is(err, payerr.KindSign))
	assert.True(t, strings.Contains(err.Error(), "this wallet is"))
}

type failingCourier struct{}

func (failingCourier) Exchange(context.Context, []string) ([]string, error) {
	return nil, errors.New("camera closed")
}

func TestAirGapCourierFailure(t *testing.T) {
	f := newFixture(t)
	tx := f.build(t)

	online := signer.NewAirGap(f.local.Address(), f.verifier, failingCourier{})

	_, err := online.Sign(context.Background(), tx, f.cfg)
	assert.True(t, payerr.Is(err, payerr.KindSign))
}
