// Package verify re-parses a transaction and checks it against the policy
// and the payment configuration it was built for. Builder, signers and the
// broadcaster all run the same checks so the bytes the user approved are
// the bytes that get submitted.
package verify

import (
	"bytes"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/policy"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

// Decoded is the parsed view of a single transfer transaction.
type Decoded struct {
	Raw      wire.Raw
	Contract wire.Contract
	Kind     policy.ContractKind
	Owner    address.Address
	To       address.Address
	Amount   amount.Micro
}

// Verifier runs the structural and semantic checks.
type Verifier struct {
	policy *policy.Policy
}

// New constructs a verifier bound to the policy.
func New(p *policy.Policy) *Verifier {
	return &Verifier{policy: p}
}

// Policy returns the policy the verifier enforces.
func (v *Verifier) Policy() *policy.Policy {
	return v.policy
}

// Decode parses the raw data of tx and returns the single transfer it
// carries. Anything that isn't exactly one allowed transfer fails.
func (v *Verifier) Decode(tx wire.Transaction) (d Decoded, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d = Decoded{}
			err = payerr.Validation("decoding transaction: %v", rec)
		}
	}()

	if len(tx.RawData) == 0 {
		return Decoded{}, payerr.Validation("missing raw data")
	}

	raw, err := tx.Raw()
	if err != nil {
		return Decoded{}, payerr.Validation("malformed raw data: %s", err)
	}

	if len(raw.Contracts) != 1 {
		return Decoded{}, payerr.Validation("expected exactly one contract, got %d", len(raw.Contracts))
	}

	c := raw.Contracts[0]
	kind := policy.Classify(c)
	if !v.policy.IsAllowed(kind) {
		return Decoded{}, payerr.PolicyViolation("contract type %s not allowed", kind)
	}

	tc, err := wire.UnmarshalTransfer(c.Parameter.Value)
	if err != nil {
		return Decoded{}, payerr.Validation("malformed transfer: %s", err)
	}
	if len(tc.OwnerAddress) == 0 {
		return Decoded{}, payerr.Validation("missing owner address")
	}
	if len(tc.ToAddress) == 0 {
		return Decoded{}, payerr.Validation("missing destination address")
	}
	if tc.Amount <= 0 {
		return Decoded{}, payerr.Validation("amount must be positive")
	}

	owner, err := address.FromBytes(tc.OwnerAddress)
	if err != nil {
		return Decoded{}, payerr.Validation("invalid owner address")
	}
	to, err := address.FromBytes(tc.ToAddress)
	if err != nil {
		return Decoded{}, payerr.Validation("invalid destination address")
	}

	d = Decoded{
		Raw:      raw,
		Contract: c,
		Kind:     kind,
		Owner:    owner,
		To:       to,
		Amount:   amount.Micro(tc.Amount),
	}

	return d, nil
}

// Transaction verifies tx is exactly the transfer cfg describes, paid by
// from. Forbidden contract kinds fail as policy violations, every other
// failure is a validation error.
func (v *Verifier) Transaction(tx wire.Transaction, cfg settings.Config, from address.Address) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = payerr.Validation("verifying transaction: %v", rec)
		}
	}()

	d, err := v.Decode(tx)
	if err != nil {
		return err
	}

	return v.check(d, cfg, from)
}

// Check verifies an already decoded transfer. It's the second half of
// Transaction for callers that need the decoded view anyway.
func (v *Verifier) Check(d Decoded, cfg settings.Config, from address.Address) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = payerr.Validation("verifying transaction: %v", rec)
		}
	}()

	return v.check(d, cfg, from)
}

func (v *Verifier) check(d Decoded, cfg settings.Config, from address.Address) error {
	total, err := cfg.Total()
	if err != nil {
		return payerr.Validation("invalid total: %s", err)
	}

	switch {
	case d.Owner != from:
		return payerr.Validation("owner mismatch")
	case d.To != cfg.SellerAddress:
		return payerr.Validation("destination mismatch")
	case d.To.Kind() != address.KindAccount:
		return payerr.Validation("destination is not an account")
	case d.Amount != total:
		return payerr.Validation("amount mismatch")
	}

	if err := v.policy.CheckAmount(d.Amount); err != nil {
		return payerr.Validation("%s", err)
	}

	switch {
	case len(d.Raw.Data) != 0:
		return payerr.Validation("raw data must be empty")
	case len(d.Raw.Scripts) != 0:
		return payerr.Validation("scripts not allowed")
	case d.Raw.Auths != 0:
		return payerr.Validation("authorities not allowed")
	case len(d.Raw.Unknown) != 0:
		return payerr.Validation("unexpected raw fields %v", d.Raw.Unknown)
	case d.Contract.PermissionID != 0:
		return payerr.Validation("permission id not allowed")
	case len(d.Contract.Provider) != 0 || len(d.Contract.ContractName) != 0:
		return payerr.Validation("contract provider not allowed")
	}

	// The parameter must be exactly what the transfer re-encodes to.
	tc := wire.TransferContract{
		OwnerAddress: d.Owner.Bytes(),
		ToAddress:    d.To.Bytes(),
		Amount:       int64(d.Amount),
	}
	if !bytes.Equal(tc.Marshal(), d.Contract.Parameter.Value) {
		return payerr.Validation("transfer parameter isn't canonical")
	}

	return nil
}
