// Package signer provides the capability to add the wallet signature to a
// transaction. Every implementation refuses to sign anything that doesn't
// verify against the configuration the caller provides.
package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

// Signer adds exactly one signature to a transaction.
type Signer interface {
	Address() address.Address
	Sign(ctx context.Context, tx wire.Transaction, cfg settings.Config) (wire.Transaction, error)
}

// Local signs in process with a key it owns. The key never leaves the
// value.
type Local struct {
	key      *ecdsa.PrivateKey
	addr     address.Address
	verifier *verify.Verifier
}

// NewLocal constructs an in process signer for the key.
func NewLocal(key *ecdsa.PrivateKey, v *verify.Verifier) *Local {
	return &Local{
		key:      key,
		addr:     address.FromPublicKey(key.PublicKey),
		verifier: v,
	}
}

// LoadLocal constructs an in process signer from a hex encoded key file.
func LoadLocal(path string, v *verify.Verifier) (*Local, error) {
	key, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("loading key: %w", err)
	}

	return NewLocal(key, v), nil
}

// Address returns the account the signer pays from.
func (l *Local) Address() address.Address {
	return l.addr
}

// Sign verifies tx and signs the sha256 of its raw data.
func (l *Local) Sign(ctx context.Context, tx wire.Transaction, cfg settings.Config) (wire.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return wire.Transaction{}, payerr.Sign(err, "signing cancelled")
	}
	if len(tx.Signatures) != 0 {
		return wire.Transaction{}, payerr.Sign(nil, "transaction is already signed")
	}
	if err := refuse(l.verifier.Transaction(tx, cfg, l.addr)); err != nil {
		return wire.Transaction{}, err
	}

	sig, err := crypto.Sign(tx.Hash(), l.key)
	if err != nil {
		return wire.Transaction{}, payerr.Sign(err, "signing")
	}

	signed := tx.Clone()
	signed.Signatures = [][]byte{sig}

	return signed, nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Recover returns the address that produced the single signature of tx.
func Recover(tx wire.Transaction) (address.Address, error) {
	if len(tx.Signatures) != 1 {
		return "", fmt.Errorf("expected exactly one signature, got %d", len(tx.Signatures))
	}

	pub, err := crypto.SigToPub(tx.Hash(), tx.Signatures[0])
	if err != nil {
		return "", fmt.Errorf("recovering public key: %w", err)
	}

	return address.FromPublicKey(*pub), nil
}

// refuse turns a verification failure into a signing refusal. Policy
// violations keep their kind.
func refuse(err error) error {
	if err == nil {
		return nil
	}
	if payerr.Is(err, payerr.KindPolicyViolation) {
		return err
	}
	return payerr.Sign(err, "refusing to sign")
}
