package state

import (
	"context"
	"fmt"
	"time"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/broadcast"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/builder"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/qr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/risk"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/signer"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

// Payment is a built transaction waiting to be signed and broadcast.
type Payment struct {
	ID             string           `json:"id"`
	TxID           string           `json:"txid"`
	From           address.Address  `json:"from"`
	To             address.Address  `json:"to"`
	Amount         amount.Micro     `json:"amount_micro"`
	RefBlockHeight int64            `json:"ref_block_height"`
	Created        time.Time        `json:"created"`
	Expiration     time.Time        `json:"expiration"`
	Risk           risk.Result      `json:"risk"`
	Tx             wire.Transaction `json:"-"`
}

// Prepare fetches a reference block, builds the payment for the current
// settings and assesses its risk. The payment is held until it's submitted,
// discarded or expired.
func (s *State) Prepare(ctx context.Context, from address.Address) (Payment, error) {
	s.evHandler("state: Prepare: started: from[%s]", from)
	defer s.evHandler("state: Prepare: completed: from[%s]", from)

	cfg := s.settings.Snapshot()

	ref, err := s.refBlock(ctx)
	if err != nil {
		s.evHandler("state: Prepare: ref block: ERROR: %s", err)
		return Payment{}, err
	}

	tx, err := s.builder.Build(from, cfg, &ref)
	if err != nil {
		s.evHandler("state: Prepare: build: ERROR: %s", err)
		return Payment{}, err
	}

	return s.assess(tx, cfg, from, ref.Number)
}

// PrepareFromNode has the node create the transfer instead of building it
// locally. The node's transaction is only adopted when it passes the same
// checks an offline build does.
func (s *State) PrepareFromNode(ctx context.Context, from address.Address) (Payment, error) {
	s.evHandler("state: PrepareFromNode: started: from[%s]", from)
	defer s.evHandler("state: PrepareFromNode: completed: from[%s]", from)

	cfg := s.settings.Snapshot()

	total, err := cfg.Total()
	if err != nil || !cfg.IsComplete() {
		return Payment{}, payerr.Build("payment configuration is incomplete")
	}

	ref, err := s.refBlock(ctx)
	if err != nil {
		s.evHandler("state: PrepareFromNode: ref block: ERROR: %s", err)
		return Payment{}, err
	}

	seed, err := s.createTransaction(ctx, from, cfg.SellerAddress, total)
	if err != nil {
		s.evHandler("state: PrepareFromNode: create: ERROR: %s", err)
		return Payment{}, err
	}

	tx, err := s.builder.FromNode(from, cfg, seed)
	if err != nil {
		s.evHandler("state: PrepareFromNode: adopt: ERROR: %s", err)
		return Payment{}, err
	}

	return s.assess(tx, cfg, from, ref.Number)
}

// assess decodes and risk checks the built transaction and holds it for
// submission unless it's blocked.
func (s *State) assess(tx wire.Transaction, cfg settings.Config, from address.Address, refHeight int64) (Payment, error) {
	d, err := s.verifier.Decode(tx)
	if err != nil {
		return Payment{}, err
	}

	p := Payment{
		ID:             newID(),
		TxID:           broadcast.TxID(tx),
		From:           d.Owner,
		To:             d.To,
		Amount:         d.Amount,
		RefBlockHeight: refHeight,
		Created:        s.now(),
		Expiration:     time.UnixMilli(d.Raw.Expiration),
		Risk:           s.risk.Assess(tx, cfg, from),
		Tx:             tx,
	}

	s.evHandler("state: assess: id[%s]: txid[%s]: amount[%s]: risk[%s]", p.ID, p.TxID, p.Amount, p.Risk.Level)

	if p.Risk.Level != risk.Block {
		s.hold(p)
	}

	return p, nil
}

// Submit signs the prepared payment with the in-process signer and
// broadcasts it. A payment assessed BLOCK is refused, one that requires a
// second confirmation is refused unless confirmed is set.
func (s *State) Submit(ctx context.Context, id string, confirmed bool) (string, error) {
	s.evHandler("state: Submit: started: id[%s]", id)
	defer s.evHandler("state: Submit: completed: id[%s]", id)

	if s.signer == nil {
		return "", payerr.Sign(nil, "no signer available")
	}

	p, cfg, err := s.gate(id, confirmed)
	if err != nil {
		return "", err
	}

	signed, err := s.signer.Sign(ctx, p.Tx, cfg)
	if err != nil {
		s.evHandler("state: Submit: sign: id[%s]: ERROR: %s", id, err)
		return "", err
	}

	return s.broadcast(ctx, p, signed, cfg)
}

// Envelope returns the unsigned envelope of the prepared payment for an
// air-gapped signer.
func (s *State) Envelope(id string) (qr.Unsigned, error) {
	p, exists := s.Payment(id)
	if !exists {
		return qr.Unsigned{}, ErrNotFound
	}

	return qr.NewUnsigned(s.verifier, p.Tx, p.RefBlockHeight)
}

// Import accepts the QR fragments of the signed envelope for the prepared
// payment, checks nothing was altered on the way and broadcasts it.
func (s *State) Import(ctx context.Context, id string, fragments []string, confirmed bool) (string, error) {
	s.evHandler("state: Import: started: id[%s]: fragments[%d]", id, len(fragments))
	defer s.evHandler("state: Import: completed: id[%s]", id)

	unsigned, err := s.Envelope(id)
	if err != nil {
		return "", err
	}

	payload, err := qr.Assemble(fragments)
	if err != nil {
		return "", err
	}
	envelope, err := qr.DecodeSigned(payload)
	if err != nil {
		return "", err
	}
	if err := qr.Verify(unsigned, envelope); err != nil {
		s.evHandler("state: Import: verify: id[%s]: ERROR: %s", id, err)
		return "", err
	}
	signed, err := envelope.Transaction()
	if err != nil {
		return "", err
	}

	p, cfg, err := s.gate(id, confirmed)
	if err != nil {
		return "", err
	}

	signedBy, err := signer.Recover(signed)
	if err != nil || signedBy != p.From {
		return "", payerr.Sign(err, "signed by %s, expected %s", signedBy, p.From)
	}

	return s.broadcast(ctx, p, signed, cfg)
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// gate reassesses the payment against the current settings and takes it
// when it may proceed.
func (s *State) gate(id string, confirmed bool) (Payment, settings.Config, error) {
	p, exists := s.Payment(id)
	if !exists {
		return Payment{}, settings.Config{}, ErrNotFound
	}

	cfg := s.settings.Snapshot()

	res := s.risk.Assess(p.Tx, cfg, p.From)
	switch {
	case res.Level == risk.Block:
		s.Discard(id)
		s.evHandler("state: gate: id[%s]: BLOCK: %s", id, res.Message)
		return Payment{}, settings.Config{}, fmt.Errorf("%w: %s", ErrBlocked, res.Message)

	case res.RequiresSecondConfirmation && !confirmed:
		s.evHandler("state: gate: id[%s]: confirmation required: %s", id, res.Message)
		return Payment{}, settings.Config{}, fmt.Errorf("%w: %s", ErrConfirmationRequired, res.Message)
	}

	p, exists = s.take(id)
	if !exists {
		return Payment{}, settings.Config{}, ErrNotFound
	}
	p.Risk = res

	return p, cfg, nil
}

func (s *State) broadcast(ctx context.Context, p Payment, signed wire.Transaction, cfg settings.Config) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.nodeTimeout)
	defer cancel()

	txid, err := s.broadcaster.Broadcast(ctx, signed, cfg)
	if err != nil {
		s.evHandler("state: broadcast: id[%s]: ERROR: %s", p.ID, err)
		return "", err
	}

	s.evHandler("state: broadcast: id[%s]: txid[%s]: SUCCESS", p.ID, txid)

	if s.Tracker != nil {
		s.Tracker.Signal()
	}

	return txid, nil
}

func (s *State) refBlock(ctx context.Context) (builder.RefBlock, error) {
	ctx, cancel := context.WithTimeout(ctx, s.nodeTimeout)
	defer cancel()

	b, err := s.node.NowBlock(ctx)
	if err != nil {
		return builder.RefBlock{}, nodeErr(ctx, err)
	}

	return builder.RefBlock{Number: b.Number, ID: b.ID}, nil
}

func (s *State) createTransaction(ctx context.Context, from, to address.Address, amt amount.Micro) (wire.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.nodeTimeout)
	defer cancel()

	tx, err := s.node.CreateTransaction(ctx, from, to, amt)
	if err != nil {
		if payerr.Is(err, payerr.KindNodeReject) {
			return wire.Transaction{}, err
		}
		return wire.Transaction{}, nodeErr(ctx, err)
	}

	return tx, nil
}

// nodeErr classifies a failed node call as a transport error.
func nodeErr(ctx context.Context, err error) error {
	if pe, ok := payerr.As(err); ok && pe.Kind == payerr.KindTransport {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return payerr.FromContext(ctxErr)
	}
	return payerr.TransportErr(payerr.TransportOther, 0, err)
}
