package broadcast

import (
	"context"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/history"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
)

// StatusKind is the state of a transaction on the ledger.
type StatusKind int

// Set of status kinds.
const (
	StatusNotFound StatusKind = iota
	StatusPending
	StatusSuccess
	StatusFailed
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusError:
		return "error"
	}
	return "not_found"
}

// Status is the answer of a status query. Reason is set for failed and
// error statuses.
type Status struct {
	Kind        StatusKind   `json:"kind"`
	BlockHeight int64        `json:"block_height,omitempty"`
	Fee         amount.Micro `json:"fee,omitempty"`
	NetUsage    int64        `json:"net_usage,omitempty"`
	EnergyUsage int64        `json:"energy_usage,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}

// Status asks the node what became of the transaction.
func (b *Broadcaster) Status(ctx context.Context, txid string) Status {
	b.evHandler("broadcast: Status: started: txid[%s]", txid)
	defer b.evHandler("broadcast: Status: completed: txid[%s]", txid)

	info, err := b.node.TransactionInfoByID(ctx, txid)
	if err != nil {
		return Status{Kind: StatusError, Reason: payerr.UserMessage(transportErr(ctx, err))}
	}

	if info.Found && info.BlockNumber > 0 {
		if info.Failed {
			reason := info.Message
			if reason == "" {
				reason = "FAILED"
			}
			return Status{
				Kind:        StatusFailed,
				BlockHeight: info.BlockNumber,
				Fee:         info.Fee,
				NetUsage:    info.NetUsage,
				EnergyUsage: info.EnergyUsage,
				Reason:      reason,
			}
		}

		return Status{
			Kind:        StatusSuccess,
			BlockHeight: info.BlockNumber,
			Fee:         info.Fee,
			NetUsage:    info.NetUsage,
			EnergyUsage: info.EnergyUsage,
		}
	}

	tx, err := b.node.TransactionByID(ctx, txid)
	if err != nil {
		return Status{Kind: StatusError, Reason: payerr.UserMessage(transportErr(ctx, err))}
	}
	if tx.Found {
		return Status{Kind: StatusPending}
	}

	return Status{Kind: StatusNotFound}
}

// Pending returns the recorded transactions not yet seen in a block.
func (b *Broadcaster) Pending() []history.Record {
	return b.recorder.Pending()
}

// Apply folds a final status into the record for the txid. Statuses that
// aren't final leave the record alone. It reports whether the record changed.
func (b *Broadcaster) Apply(txid string, st Status) (bool, error) {
	switch st.Kind {
	case StatusSuccess, StatusFailed:
	default:
		return false, nil
	}

	return b.recorder.UpdateByTxid(txid, func(rec *history.Record) {
		rec.BlockHeight = st.BlockHeight
		rec.Fee = st.Fee
		rec.NetUsage = st.NetUsage
		rec.EnergyUsage = st.EnergyUsage
		if st.Kind == StatusFailed {
			rec.Status = history.StatusFailure
			rec.ErrorMessage = st.Reason
		}
	})
}
