// Package history keeps the bounded, newest first record of broadcast
// transactions.
package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
)

// Capacity is the maximum number of records kept. The oldest is evicted
// first.
const Capacity = 100

// Status is the outcome of a recorded transaction.
type Status string

// Set of statuses.
const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusPending Status = "PENDING"
)

// Record is a historical transaction.
type Record struct {
	TxID         string          `json:"txid"`
	From         address.Address `json:"from"`
	To           address.Address `json:"to"`
	Amount       amount.Micro    `json:"amount_micro"`
	Fee          amount.Micro    `json:"fee_micro"`
	NetUsage     int64           `json:"net_usage"`
	EnergyUsage  int64           `json:"energy_usage"`
	BlockHeight  int64           `json:"block_height"`
	TimestampMs  int64           `json:"timestamp_ms"`
	Status       Status          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Memo         string          `json:"memo"`
}

// Time returns the record timestamp in local time.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.TimestampMs)
}

// Persister is called with a snapshot of the records after every mutation.
type Persister func(records []Record) error

// Recorder is the ring of records. Mutations persist in the order they
// were applied.
type Recorder struct {
	pmu     sync.Mutex
	mu      sync.RWMutex
	records []Record
	persist Persister
}

// New constructs a recorder restored from records, which must be newest
// first. A nil persister keeps the records in memory only.
func New(records []Record, persist Persister) *Recorder {
	r := Recorder{persist: persist}
	r.records = trim(append([]Record(nil), records...))

	return &r
}

// Save puts the record at the front. A record with the same txid is
// replaced.
func (r *Recorder) Save(rec Record) error {
	r.pmu.Lock()
	defer r.pmu.Unlock()

	r.mu.Lock()
	records := make([]Record, 0, len(r.records)+1)
	records = append(records, rec)
	for _, existing := range r.records {
		if existing.TxID != rec.TxID {
			records = append(records, existing)
		}
	}
	r.records = trim(records)
	snap := r.snapshot()
	r.mu.Unlock()

	return r.save(snap)
}

// Get returns the record for the txid.
func (r *Recorder) Get(txid string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.TxID == txid {
			return rec, true
		}
	}
	return Record{}, false
}

// List returns a copy of every record, newest first.
func (r *Recorder) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot()
}

// UpdateByTxid applies fn to the record for the txid. It reports whether a
// record was found. The txid itself can't be changed.
func (r *Recorder) UpdateByTxid(txid string, fn func(rec *Record)) (bool, error) {
	r.pmu.Lock()
	defer r.pmu.Unlock()

	r.mu.Lock()
	idx := -1
	for i := range r.records {
		if r.records[i].TxID == txid {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return false, nil
	}

	rec := r.records[idx]
	fn(&rec)
	rec.TxID = txid
	r.records[idx] = rec
	snap := r.snapshot()
	r.mu.Unlock()

	return true, r.save(snap)
}

// Restore replaces every record with records, which must be newest first.
// Nothing is persisted.
func (r *Recorder) Restore(records []Record) {
	records = trim(append([]Record(nil), records...))

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = records
}

// Clear drops every record.
func (r *Recorder) Clear() error {
	r.pmu.Lock()
	defer r.pmu.Unlock()

	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()

	return r.save(nil)
}

// CountSuccess returns the number of successful records.
func (r *Recorder) CountSuccess() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int
	for _, rec := range r.records {
		if rec.Status == StatusSuccess {
			n++
		}
	}
	return n
}

// Today returns the records made since the last midnight in the location of
// now, newest first.
func (r *Recorder) Today(now time.Time) []Record {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	for _, rec := range r.records {
		if rec.TimestampMs >= midnight.UnixMilli() {
			out = append(out, rec)
		}
	}
	return out
}

// Pending returns the records not yet seen in a block.
func (r *Recorder) Pending() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	for _, rec := range r.records {
		if rec.BlockHeight == 0 && rec.Status != StatusFailure {
			out = append(out, rec)
		}
	}
	return out
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// snapshot must be called with the lock held.
func (r *Recorder) snapshot() []Record {
	return append([]Record(nil), r.records...)
}

func (r *Recorder) save(records []Record) error {
	if r.persist == nil {
		return nil
	}
	if err := r.persist(records); err != nil {
		return fmt.Errorf("persisting history: %w", err)
	}
	return nil
}

func trim(records []Record) []Record {
	if len(records) > Capacity {
		return records[:Capacity]
	}
	return records
}
