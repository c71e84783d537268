// Package builder materialises the one transaction the client can produce:
// a native transfer from the wallet to the configured seller.
package builder

import (
	"encoding/binary"
	"time"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

// RefBlock identifies the recent block a transaction is bound to.
type RefBlock struct {
	Number int64
	ID     []byte
}

// Bytes returns ref_block_bytes: bytes 6 and 7 of the big endian height.
func (rb RefBlock) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(rb.Number))
	return b[6:8]
}

// Hash returns ref_block_hash: bytes 8 to 16 of the block id.
func (rb RefBlock) Hash() []byte {
	if len(rb.ID) < 16 {
		return nil
	}
	return append([]byte(nil), rb.ID[8:16]...)
}

// Clock returns the current time.
type Clock func() time.Time

// Builder constructs transfer transactions.
type Builder struct {
	verifier *verify.Verifier
	now      Clock
}

// New constructs a builder. A nil clock uses the wall clock.
func New(v *verify.Verifier, now Clock) *Builder {
	if now == nil {
		now = time.Now
	}

	return &Builder{
		verifier: v,
		now:      now,
	}
}

// Build constructs the transfer offline: fresh timestamp, the policy
// expiration window and fee limit, no data, a single transfer. A nil ref
// leaves the reference block unset.
func (b *Builder) Build(from address.Address, cfg settings.Config, ref *RefBlock) (wire.Transaction, error) {
	total, err := b.preconditions(from, cfg)
	if err != nil {
		return wire.Transaction{}, err
	}

	p := b.verifier.Policy()
	now := b.now().UnixMilli()

	raw := wire.Raw{
		Timestamp:  now,
		Expiration: now + p.Expiration().Milliseconds(),
		FeeLimit:   int64(p.FeeLimit()),
		Contracts: []wire.Contract{wire.NewTransfer(wire.TransferContract{
			OwnerAddress: from.Bytes(),
			ToAddress:    cfg.SellerAddress.Bytes(),
			Amount:       int64(total),
		})},
	}
	if ref != nil {
		raw.RefBlockBytes = ref.Bytes()
		raw.RefBlockHash = ref.Hash()
	}

	tx := wire.Transaction{RawData: raw.Marshal()}
	if err := b.selfCheck(tx, from, cfg, total); err != nil {
		return wire.Transaction{}, err
	}

	return tx, nil
}

// FromNode adopts a transaction created by the node. The seed is parsed and
// checked against the same preconditions an offline build satisfies.
func (b *Builder) FromNode(from address.Address, cfg settings.Config, seed wire.Transaction) (wire.Transaction, error) {
	total, err := b.preconditions(from, cfg)
	if err != nil {
		return wire.Transaction{}, err
	}

	if len(seed.Signatures) != 0 {
		return wire.Transaction{}, payerr.Build("node transaction is already signed")
	}

	tx := wire.Transaction{RawData: append([]byte(nil), seed.RawData...)}
	if err := b.selfCheck(tx, from, cfg, total); err != nil {
		return wire.Transaction{}, err
	}

	raw, err := tx.Raw()
	if err != nil {
		return wire.Transaction{}, payerr.Build("malformed node transaction: %s", err)
	}
	if raw.Expiration <= b.now().UnixMilli() {
		return wire.Transaction{}, payerr.Build("node transaction already expired")
	}

	return tx, nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

func (b *Builder) preconditions(from address.Address, cfg settings.Config) (amount.Micro, error) {
	if !cfg.IsComplete() {
		return 0, payerr.Build("payment configuration is incomplete")
	}
	if _, err := address.ParseDestination(from.String()); err != nil {
		return 0, payerr.Build("invalid sender address: %s", err)
	}
	if _, err := address.ParseDestination(cfg.SellerAddress.String()); err != nil {
		return 0, payerr.Build("invalid seller address: %s", err)
	}
	if from == cfg.SellerAddress {
		return 0, payerr.Build("sender and seller are the same address")
	}

	total, err := cfg.Total()
	if err != nil || total <= 0 {
		return 0, payerr.Build("invalid total")
	}

	return total, nil
}

// selfCheck re-reads the built bytes. Policy violations keep their kind,
// everything else becomes a build error.
func (b *Builder) selfCheck(tx wire.Transaction, from address.Address, cfg settings.Config, total amount.Micro) error {
	d, err := b.verifier.Decode(tx)
	if err != nil {
		return buildErr(err)
	}

	switch {
	case len(d.Raw.Contracts) != 1:
		return payerr.Build("expected exactly one contract")
	case d.Contract.Type != wire.TransferContractType:
		return payerr.Build("contract type %s", d.Contract.Type)
	case len(d.Raw.Data) != 0:
		return payerr.Build("raw data must be empty")
	case d.Raw.Expiration <= d.Raw.Timestamp:
		return payerr.Build("expiration must be after timestamp")
	case d.Amount != total:
		return payerr.Build("amount mismatch")
	}

	if err := b.verifier.Check(d, cfg, from); err != nil {
		return buildErr(err)
	}

	return nil
}

func buildErr(err error) error {
	if payerr.Is(err, payerr.KindPolicyViolation) {
		return err
	}
	return payerr.Reclassify(err, payerr.KindBuild)
}
