package signer

import (
	"context"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/qr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

// Courier shows the unsigned fragments to the cold instance and returns the
// fragments scanned back from it.
type Courier interface {
	Exchange(ctx context.Context, fragments []string) ([]string, error)
}

// AirGap signs through a paired cold instance reached over QR codes. It
// holds no key, only the address the cold instance signs for.
type AirGap struct {
	addr     address.Address
	verifier *verify.Verifier
	courier  Courier
}

// NewAirGap constructs an air gapped signer for the cold wallet address.
func NewAirGap(addr address.Address, v *verify.Verifier, courier Courier) *AirGap {
	return &AirGap{
		addr:     addr,
		verifier: v,
		courier:  courier,
	}
}

// Address returns the account the cold instance pays from.
func (a *AirGap) Address() address.Address {
	return a.addr
}

// Sign emits the unsigned envelope, waits for the signed one and checks the
// answer covers the exact raw data that was sent.
func (a *AirGap) Sign(ctx context.Context, tx wire.Transaction, cfg settings.Config) (wire.Transaction, error) {
	if len(tx.Signatures) != 0 {
		return wire.Transaction{}, payerr.Sign(nil, "transaction is already signed")
	}
	if err := refuse(a.verifier.Transaction(tx, cfg, a.addr)); err != nil {
		return wire.Transaction{}, err
	}

	u, err := qr.NewUnsigned(a.verifier, tx, 0)
	if err != nil {
		return wire.Transaction{}, refuse(err)
	}
	fragments, err := qr.Fragments(u)
	if err != nil {
		return wire.Transaction{}, payerr.Sign(err, "encoding envelope")
	}

	answer, err := a.courier.Exchange(ctx, fragments)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return wire.Transaction{}, payerr.Sign(ctxErr, "signing cancelled")
		}
		return wire.Transaction{}, payerr.Sign(err, "exchanging with cold signer")
	}

	text, err := qr.Assemble(answer)
	if err != nil {
		return wire.Transaction{}, err
	}
	s, err := qr.DecodeSigned(text)
	if err != nil {
		return wire.Transaction{}, err
	}
	if err := qr.Verify(u, s); err != nil {
		return wire.Transaction{}, err
	}

	signed, err := s.Transaction()
	if err != nil {
		return wire.Transaction{}, err
	}

	signer, err := Recover(signed)
	if err != nil {
		return wire.Transaction{}, payerr.Sign(err, "invalid signature")
	}
	if signer != a.addr {
		return wire.Transaction{}, payerr.Sign(nil, "signed by %s, expected %s", signer, a.addr)
	}

	if err := refuse(a.verifier.Transaction(signed, cfg, a.addr)); err != nil {
		return wire.Transaction{}, err
	}

	return signed, nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Cold is the offline side of the air gap: it scans unsigned envelopes,
// signs them with its local key and answers with signed envelopes.
type Cold struct {
	local    *Local
	verifier *verify.Verifier
}

// NewCold constructs the cold side around an in process signer.
func NewCold(local *Local, v *verify.Verifier) *Cold {
	return &Cold{
		local:    local,
		verifier: v,
	}
}

// Address returns the account the cold instance signs for.
func (c *Cold) Address() address.Address {
	return c.local.Address()
}

// SignFragments assembles scanned fragments and signs the envelope.
func (c *Cold) SignFragments(ctx context.Context, fragments []string, cfg settings.Config) ([]string, error) {
	text, err := qr.Assemble(fragments)
	if err != nil {
		return nil, err
	}

	return c.SignEnvelope(ctx, text, cfg)
}

// SignEnvelope signs the transaction an unsigned envelope carries and
// returns the signed envelope split for display.
func (c *Cold) SignEnvelope(ctx context.Context, text string, cfg settings.Config) ([]string, error) {
	u, err := qr.DecodeUnsigned(text)
	if err != nil {
		return nil, err
	}
	if u.From != c.local.Address() {
		return nil, payerr.Sign(nil, "envelope pays from %s, this wallet is %s", u.From, c.local.Address())
	}

	tx, err := u.Transaction(c.verifier)
	if err != nil {
		return nil, err
	}

	signed, err := c.local.Sign(ctx, tx, cfg)
	if err != nil {
		return nil, err
	}

	s, err := qr.NewSigned(c.verifier, signed)
	if err != nil {
		return nil, err
	}

	return qr.Fragments(s)
}
