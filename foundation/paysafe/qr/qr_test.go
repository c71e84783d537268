package qr_test

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/builder"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/policy"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/qr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

type fixture struct {
	verifier *verify.Verifier
	cfg      settings.Config
	from     address.Address
	unsigned wire.Transaction
	signed   wire.Transaction
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sellerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	from := address.FromPublicKey(key.PublicKey)
	cfg := settings.Config{SellerAddress: address.FromPublicKey(sellerKey.PublicKey), PricePerUnit: 5_000_000, Multiplier: 3}

	v := verify.New(policy.Default())
	b := builder.New(v, nil)

	ref := builder.RefBlock{Number: 60_000_000, ID: make([]byte, 32)}
	tx, err := b.Build(from, cfg, &ref)
	require.NoError(t, err)

	sig, err := crypto.Sign(tx.Hash(), key)
	require.NoError(t, err)

	signed := tx.Clone()
	signed.Signatures = [][]byte{sig}

	return fixture{verifier: v, cfg: cfg, from: from, unsigned: tx, signed: signed}
}

func TestUnsignedRoundTrip(t *testing.T) {
	f := newFixture(t)

	u, err := qr.NewUnsigned(f.verifier, f.unsigned, 60_000_000)
	require.NoError(t, err)
	assert.Equal(t, "1.0", u.V)
	assert.Equal(t, "transfer", u.Type)
	assert.Equal(t, f.from, u.From)
	assert.EqualValues(t, 15_000_000, u.Amount)
	assert.Len(t, u.RefBlock, 20, "2 ref bytes and 8 hash bytes in hex")

	text, err := qr.Encode(u)
	require.NoError(t, err)

	got, err := qr.DecodeUnsigned(text)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	tx, err := got.Transaction(f.verifier)
	require.NoError(t, err)
	assert.Equal(t, f.unsigned.RawData, tx.RawData)
	require.NoError(t, f.verifier.Transaction(tx, f.cfg, f.from))
}

func TestUnsignedDetectsEditedFields(t *testing.T) {
	f := newFixture(t)

	u, err := qr.NewUnsigned(f.verifier, f.unsigned, 0)
	require.NoError(t, err)

	u.Amount = 14_999_999
	_, err = u.Transaction(f.verifier)
	assert.True(t, payerr.Is(err, payerr.KindTampered))
	assert.Equal(t, "data tampered: amount", err.Error())
}

func TestVerify(t *testing.T) {
	f := newFixture(t)

	u, err := qr.NewUnsigned(f.verifier, f.unsigned, 0)
	require.NoError(t, err)
	s, err := qr.NewSigned(f.verifier, f.signed)
	require.NoError(t, err)

	require.NoError(t, qr.Verify(u, s))

	tx, err := s.Transaction()
	require.NoError(t, err)
	require.NoError(t, f.verifier.Transaction(tx, f.cfg, f.from))

	tests := []struct {
		field  string
		mutate func(s *qr.Signed)
	}{
		{"type", func(s *qr.Signed) { s.Type = "trc20" }},
		{"to", func(s *qr.Signed) { s.To = f.from }},
		{"amount", func(s *qr.Signed) { s.Amount = 14_999_999 }},
		{"signature", func(s *qr.Signed) { s.Signature = strings.Repeat("00", 65) }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			tampered := s
			tt.mutate(&tampered)

			err := qr.Verify(u, tampered)
			require.Error(t, err)
			assert.Equal(t, "data tampered: "+tt.field, err.Error())
		})
	}

	t.Run("rawData", func(t *testing.T) {
		other := newFixture(t)
		otherSigned, err := qr.NewSigned(other.verifier, other.signed)
		require.NoError(t, err)

		otherSigned.To = u.To
		otherSigned.Amount = u.Amount

		err = qr.Verify(u, otherSigned)
		assert.Equal(t, "data tampered: rawData", err.Error())
	})
}

func TestSplitSingle(t *testing.T) {
	payload := strings.Repeat("a", qr.MaxChunk)

	fragments := qr.Split(payload)
	require.Len(t, fragments, 1)
	assert.Equal(t, payload, fragments[0], "single fragments are unframed")

	got, err := qr.Assemble(fragments)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSplitAssembleAnyOrder(t *testing.T) {
	var b strings.Builder
	for b.Len() < 1_500 {
		b.WriteString("0123456789abcdef:")
	}
	payload := b.String()

	fragments := qr.Split(payload)
	require.Len(t, fragments, (len(payload)+qr.MaxChunk-1)/qr.MaxChunk)
	for i, frag := range fragments {
		f, err := qr.ParseFragment(frag)
		require.NoError(t, err)
		assert.Equal(t, i, f.Index)
		assert.LessOrEqual(t, len(f.Payload), qr.MaxChunk)
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 10; i++ {
		shuffled := append([]string(nil), fragments...)
		rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		// Duplicates are admitted idempotently.
		shuffled = append(shuffled, shuffled[0])

		got, err := qr.Assemble(shuffled)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestCollector(t *testing.T) {
	c := qr.NewCollector()

	done, err := c.Add("trxsafe:v1:1:3:bbb")
	require.NoError(t, err)
	assert.False(t, done)

	done, err = c.Add("trxsafe:v1:1:3:bbb")
	require.NoError(t, err)
	assert.False(t, done)

	received, total := c.Progress()
	assert.Equal(t, 1, received)
	assert.Equal(t, 3, total)
	assert.Equal(t, []int{0, 2}, c.Missing())

	_, err = c.Assemble()
	assert.True(t, payerr.Is(err, payerr.KindFraming))

	_, err = c.Add("trxsafe:v1:0:4:aaa")
	require.Error(t, err)
	assert.Equal(t, "inconsistent framing", err.Error())

	_, err = c.Add("trxsafe:v1:0:3:aaa")
	require.NoError(t, err)
	done, err = c.Add("trxsafe:v1:2:3:ccc")
	require.NoError(t, err)
	assert.True(t, done)
	assert.True(t, c.Complete())

	got, err := c.Assemble()
	require.NoError(t, err)
	assert.Equal(t, "aaabbbccc", got)
}

func TestParseFragmentErrors(t *testing.T) {
	for _, text := range []string{"trxsafe:v1:3:3:x", "trxsafe:v1:x:3:x", "trxsafe:v1:0:0:x", "trxsafe:v1:0"} {
		_, err := qr.ParseFragment(text)
		assert.True(t, payerr.Is(err, payerr.KindFraming), text)
	}

	f, err := qr.ParseFragment(`{"v":"1.0"}`)
	require.NoError(t, err)
	assert.False(t, f.Framed)
	assert.Equal(t, 1, f.Total)
}

func TestRender(t *testing.T) {
	png, err := qr.Render("trxsafe:v1:0:2:hello", 256)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
