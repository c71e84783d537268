// Package broadcast revalidates signed transactions, submits them to the
// node, interprets the answer and records the outcome.
package broadcast

import (
	"context"
	"strings"
	"time"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/history"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/signer"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
	"github.com/adamwoolhether/trxsafe/foundation/tron/node"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

//go:generate mockgen -source=broadcast.go -destination=mocks/node.go -package=mocks

// Node is the transport to a full node.
type Node interface {
	CreateTransaction(ctx context.Context, from, to address.Address, amt amount.Micro) (wire.Transaction, error)
	NowBlock(ctx context.Context) (node.Block, error)
	Broadcast(ctx context.Context, tx wire.Transaction) (node.BroadcastResult, error)
	TransactionByID(ctx context.Context, txid string) (node.Transaction, error)
	TransactionInfoByID(ctx context.Context, txid string) (node.TransactionInfo, error)
	Account(ctx context.Context, a address.Address) (node.Account, error)
}

// Config is what's needed to construct a broadcaster.
type Config struct {
	Node      Node
	Verifier  *verify.Verifier
	Recorder  *history.Recorder
	Now       func() time.Time
	EvHandler func(v string, args ...any)
}

// Broadcaster owns the recorder: every history mutation goes through it.
type Broadcaster struct {
	node      Node
	verifier  *verify.Verifier
	recorder  *history.Recorder
	now       func() time.Time
	evHandler func(v string, args ...any)
}

// New constructs a broadcaster.
func New(cfg Config) *Broadcaster {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Broadcaster{
		node:      cfg.Node,
		verifier:  cfg.Verifier,
		recorder:  cfg.Recorder,
		now:       now,
		evHandler: ev,
	}
}

// Recorder returns the history the broadcaster writes to.
func (b *Broadcaster) Recorder() *history.Recorder {
	return b.recorder
}

// Broadcast checks tx once more against cfg, submits it and records the
// success. It returns the transaction id.
func (b *Broadcaster) Broadcast(ctx context.Context, tx wire.Transaction, cfg settings.Config) (string, error) {
	txid := TxID(tx)

	b.evHandler("broadcast: Broadcast: started: txid[%s]", txid)
	defer b.evHandler("broadcast: Broadcast: completed: txid[%s]", txid)

	d, err := b.PreCheck(tx, cfg)
	if err != nil {
		b.evHandler("broadcast: Broadcast: pre-check: txid[%s]: ERROR: %s", txid, err)
		return "", err
	}

	res, err := b.node.Broadcast(ctx, tx)
	if err != nil {
		err = transportErr(ctx, err)
		b.evHandler("broadcast: Broadcast: submit: txid[%s]: ERROR: %s", txid, err)
		return "", err
	}

	if !res.OK {
		msg := res.Message
		if msg == "" {
			msg = res.Code
		}
		b.evHandler("broadcast: Broadcast: rejected: txid[%s]: code[%s]: %s", txid, res.Code, msg)
		return "", payerr.NodeReject(Translate(msg))
	}

	rec := history.Record{
		TxID:        txid,
		From:        d.Owner,
		To:          d.To,
		Amount:      d.Amount,
		TimestampMs: b.now().UnixMilli(),
		Status:      history.StatusSuccess,
		Memo:        string(d.Raw.Data),
	}
	if err := b.recorder.Save(rec); err != nil {
		b.evHandler("broadcast: Broadcast: record: txid[%s]: ERROR: %s", txid, err)
	}

	return txid, nil
}

// PreCheck runs the pre-broadcast checks. Any failure is a validation
// error whatever stage raised it.
func (b *Broadcaster) PreCheck(tx wire.Transaction, cfg settings.Config) (verify.Decoded, error) {
	d, err := b.preCheck(tx, cfg)
	if err != nil {
		return verify.Decoded{}, payerr.Reclassify(err, payerr.KindValidation)
	}
	return d, nil
}

func (b *Broadcaster) preCheck(tx wire.Transaction, cfg settings.Config) (verify.Decoded, error) {
	switch {
	case len(tx.Signatures) == 0:
		return verify.Decoded{}, payerr.Validation("transaction is not signed")
	case len(tx.Signatures) > 1:
		return verify.Decoded{}, payerr.Validation("unexpected extra signatures")
	}

	d, err := b.verifier.Decode(tx)
	if err != nil {
		return verify.Decoded{}, err
	}

	total, err := cfg.Total()
	if err != nil || d.Amount != total {
		return verify.Decoded{}, payerr.Validation("amount mismatch")
	}
	if d.Raw.Expiration <= b.now().UnixMilli() {
		return verify.Decoded{}, payerr.Validation("transaction expired")
	}

	signedBy, err := signer.Recover(tx)
	if err != nil || signedBy != d.Owner {
		return verify.Decoded{}, payerr.Validation("signature mismatch")
	}

	if err := b.verifier.Check(d, cfg, d.Owner); err != nil {
		return verify.Decoded{}, err
	}

	return d, nil
}

// Balance returns the balance of the account. An account that doesn't
// exist has a zero balance.
func (b *Broadcaster) Balance(ctx context.Context, a address.Address) (amount.Micro, error) {
	acc, err := b.node.Account(ctx, a)
	if err != nil {
		return 0, transportErr(ctx, err)
	}
	return acc.Balance, nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// TxID returns the transaction id: the hex sha256 of the raw data.
func TxID(tx wire.Transaction) string {
	return tx.ID()
}

// translations maps node message fragments to what the user is shown.
var translations = []struct {
	fragment string
	message  string
}{
	{"balance is not sufficient", "Insufficient balance"},
	{"account not exists", "Account does not exist"},
	{"expired", "Transaction expired"},
	{"duplicated", "Already submitted — do not rebroadcast"},
	{"validate signature error", "Signature verification failed"},
}

// Translate returns the user message for a node rejection.
func Translate(msg string) string {
	lower := strings.ToLower(msg)
	for _, t := range translations {
		if strings.Contains(lower, t.fragment) {
			return t.message
		}
	}
	return "Broadcast failed: " + msg
}

// transportErr makes sure err is a classified transport error.
func transportErr(ctx context.Context, err error) error {
	if payerr.Is(err, payerr.KindTransport) || payerr.Is(err, payerr.KindNodeReject) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return payerr.FromContext(ctxErr)
	}
	return payerr.TransportErr(payerr.TransportOther, 0, err)
}
