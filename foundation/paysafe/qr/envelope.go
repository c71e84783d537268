// Package qr implements the envelopes and the multi-part framing used to
// carry transactions between an online instance and its paired cold signer.
package qr

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

// Envelope constants.
const (
	Version      = "1.0"
	TypeTransfer = "transfer"
)

// Unsigned carries a transaction to the cold signer.
type Unsigned struct {
	V              string          `json:"v"`
	Type           string          `json:"type"`
	From           address.Address `json:"from"`
	To             address.Address `json:"to"`
	Amount         amount.Micro    `json:"amount"`
	RefBlock       string          `json:"refBlock"`
	RefBlockHeight int64           `json:"refBlockHeight"`
	Expiration     int64           `json:"expiration"`
	Timestamp      int64           `json:"timestamp"`
	RawData        string          `json:"rawData"`
}

// Signed carries the signed transaction back.
type Signed struct {
	V         string          `json:"v"`
	Type      string          `json:"type"`
	To        address.Address `json:"to"`
	Amount    amount.Micro    `json:"amount"`
	Signature string          `json:"signature"`
	SignedTx  string          `json:"signedTx"`
}

// NewUnsigned describes tx in an unsigned envelope. The reference block
// height isn't recoverable from the raw data; pass zero when it's unknown.
func NewUnsigned(v *verify.Verifier, tx wire.Transaction, refBlockHeight int64) (Unsigned, error) {
	d, err := v.Decode(tx)
	if err != nil {
		return Unsigned{}, err
	}

	u := Unsigned{
		V:              Version,
		Type:           TypeTransfer,
		From:           d.Owner,
		To:             d.To,
		Amount:         d.Amount,
		RefBlock:       hex.EncodeToString(append(append([]byte(nil), d.Raw.RefBlockBytes...), d.Raw.RefBlockHash...)),
		RefBlockHeight: refBlockHeight,
		Expiration:     d.Raw.Expiration,
		Timestamp:      d.Raw.Timestamp,
		RawData:        base64.StdEncoding.EncodeToString(tx.RawData),
	}

	return u, nil
}

// Transaction rebuilds the unsigned transaction and checks the descriptive
// fields agree with the raw data.
func (u Unsigned) Transaction(v *verify.Verifier) (wire.Transaction, error) {
	if err := checkHeader(u.V, u.Type); err != nil {
		return wire.Transaction{}, err
	}

	raw, err := base64.StdEncoding.DecodeString(u.RawData)
	if err != nil {
		return wire.Transaction{}, payerr.BadInput("rawData", "invalid base64")
	}
	tx := wire.Transaction{RawData: raw}

	d, err := v.Decode(tx)
	if err != nil {
		return wire.Transaction{}, err
	}

	switch {
	case d.Owner != u.From:
		return wire.Transaction{}, payerr.Tampered("from")
	case d.To != u.To:
		return wire.Transaction{}, payerr.Tampered("to")
	case d.Amount != u.Amount:
		return wire.Transaction{}, payerr.Tampered("amount")
	case d.Raw.Expiration != u.Expiration:
		return wire.Transaction{}, payerr.Tampered("expiration")
	case d.Raw.Timestamp != u.Timestamp:
		return wire.Transaction{}, payerr.Tampered("timestamp")
	}

	return tx, nil
}

// NewSigned describes a signed transaction in a signed envelope.
func NewSigned(v *verify.Verifier, tx wire.Transaction) (Signed, error) {
	if len(tx.Signatures) != 1 {
		return Signed{}, payerr.Sign(nil, "expected exactly one signature, got %d", len(tx.Signatures))
	}

	d, err := v.Decode(tx)
	if err != nil {
		return Signed{}, err
	}

	s := Signed{
		V:         Version,
		Type:      TypeTransfer,
		To:        d.To,
		Amount:    d.Amount,
		Signature: hex.EncodeToString(tx.Signatures[0]),
		SignedTx:  base64.StdEncoding.EncodeToString(tx.Marshal()),
	}

	return s, nil
}

// Transaction decodes the signed transaction. The signature field must be
// the one the transaction carries.
func (s Signed) Transaction() (wire.Transaction, error) {
	if err := checkHeader(s.V, s.Type); err != nil {
		return wire.Transaction{}, err
	}

	b, err := base64.StdEncoding.DecodeString(s.SignedTx)
	if err != nil {
		return wire.Transaction{}, payerr.BadInput("signedTx", "invalid base64")
	}

	tx, err := wire.UnmarshalTransaction(b)
	if err != nil {
		return wire.Transaction{}, payerr.BadInput("signedTx", err.Error())
	}
	if len(tx.Signatures) != 1 {
		return wire.Transaction{}, payerr.Tampered("signature")
	}

	sig, err := hex.DecodeString(s.Signature)
	if err != nil || !bytes.Equal(sig, tx.Signatures[0]) {
		return wire.Transaction{}, payerr.Tampered("signature")
	}

	return tx, nil
}

// Verify checks the signed envelope answers the unsigned one: same type,
// destination and amount, and a signed transaction over the same raw data.
func Verify(u Unsigned, s Signed) error {
	switch {
	case s.Type != TypeTransfer:
		return payerr.Tampered("type")
	case s.To != u.To:
		return payerr.Tampered("to")
	case s.Amount != u.Amount:
		return payerr.Tampered("amount")
	}

	tx, err := s.Transaction()
	if err != nil {
		return err
	}

	raw, err := base64.StdEncoding.DecodeString(u.RawData)
	if err != nil || !bytes.Equal(raw, tx.RawData) {
		return payerr.Tampered("rawData")
	}

	return nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Encode renders an envelope as JSON text.
func Encode(envelope any) (string, error) {
	b, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("encoding envelope: %w", err)
	}
	return string(b), nil
}

// DecodeUnsigned parses an unsigned envelope.
func DecodeUnsigned(text string) (Unsigned, error) {
	var u Unsigned
	if err := json.Unmarshal([]byte(text), &u); err != nil {
		return Unsigned{}, payerr.BadInput("envelope", "invalid unsigned envelope")
	}
	if err := checkHeader(u.V, u.Type); err != nil {
		return Unsigned{}, err
	}

	return u, nil
}

// DecodeSigned parses a signed envelope.
func DecodeSigned(text string) (Signed, error) {
	var s Signed
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return Signed{}, payerr.BadInput("envelope", "invalid signed envelope")
	}
	if s.V != Version {
		return Signed{}, payerr.BadInput("v", fmt.Sprintf("unsupported version %q", s.V))
	}

	return s, nil
}

func checkHeader(v, typ string) error {
	if v != Version {
		return payerr.BadInput("v", fmt.Sprintf("unsupported version %q", v))
	}
	if typ != TypeTransfer {
		return payerr.PolicyViolation("envelope type %q not allowed", typ)
	}
	return nil
}
