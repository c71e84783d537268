// Package tracker follows broadcast transactions until they land in a block.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/broadcast"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/history"
)

// Confirmer is the behavior the tracker needs from the broadcaster.
type Confirmer interface {
	Pending() []history.Record
	Status(ctx context.Context, txid string) broadcast.Status
	Apply(txid string, st broadcast.Status) (bool, error)
}

// Config is what's needed to run a tracker.
type Config struct {
	Confirmer Confirmer
	Interval  time.Duration
	Timeout   time.Duration
	GiveUp    time.Duration
	Now       func() time.Time
	EvHandler func(v string, args ...any)
}

// schedule is the polling state of one transaction.
type schedule struct {
	next    time.Time
	backoff *backoff.ExponentialBackOff
}

// Tracker polls the node for every pending record.
type Tracker struct {
	confirmer Confirmer
	interval  time.Duration
	timeout   time.Duration
	giveUp    time.Duration
	now       func() time.Time
	evHandler func(v string, args ...any)

	mu        sync.Mutex
	schedules map[string]*schedule

	wg     sync.WaitGroup
	ticker *time.Ticker
	poke   chan struct{}
	shut   chan struct{}
}

// New constructs a tracker. It doesn't poll until Run is called.
func New(cfg Config) *Tracker {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	giveUp := cfg.GiveUp
	if giveUp <= 0 {
		giveUp = 10 * time.Minute
	}

	return &Tracker{
		confirmer: cfg.Confirmer,
		interval:  interval,
		timeout:   timeout,
		giveUp:    giveUp,
		now:       now,
		evHandler: ev,
		schedules: make(map[string]*schedule),
		poke:      make(chan struct{}, 1),
		shut:      make(chan struct{}),
	}
}

// Run starts the polling goroutine.
func (t *Tracker) Run() {
	t.ticker = time.NewTicker(t.interval)

	t.wg.Add(1)
	hasStarted := make(chan bool)

	go func() {
		defer t.wg.Done()
		hasStarted <- true
		t.trackOperations()
	}()

	<-hasStarted
}

// Shutdown terminates the goroutine performing work.
func (t *Tracker) Shutdown() {
	t.evHandler("tracker: Shutdown: started")
	defer t.evHandler("tracker: Shutdown: completed")

	if t.ticker != nil {
		t.evHandler("tracker: Shutdown: stop ticker")
		t.ticker.Stop()
	}

	t.evHandler("tracker: Shutdown: terminate goroutines")
	close(t.shut)
	t.wg.Wait()
}

// Signal asks for a poll now, typically right after a broadcast. If a
// signal is already pending this is a no-op.
func (t *Tracker) Signal() {
	select {
	case t.poke <- struct{}{}:
		t.evHandler("tracker: Signal: poll signaled")
	default:
	}
}

// Poll queries the node for every pending record whose turn has come and
// applies the final statuses. It returns the number of records updated.
func (t *Tracker) Poll(ctx context.Context) int {
	t.evHandler("tracker: Poll: started")
	defer t.evHandler("tracker: Poll: completed")

	now := t.now()
	pending := t.confirmer.Pending()

	var updated int
	live := make(map[string]bool, len(pending))
	for _, rec := range pending {
		live[rec.TxID] = true

		sch := t.scheduleFor(rec)
		if sch == nil || now.Before(sch.next) {
			continue
		}

		st := t.status(ctx, rec.TxID)

		switch st.Kind {
		case broadcast.StatusSuccess, broadcast.StatusFailed:
			changed, err := t.confirmer.Apply(rec.TxID, st)
			if err != nil {
				t.evHandler("tracker: Poll: apply: txid[%s]: ERROR: %s", rec.TxID, err)
			}
			if changed {
				updated++
				t.evHandler("tracker: Poll: txid[%s]: %s: block[%d]", rec.TxID, st.Kind, st.BlockHeight)
			}
			t.forget(rec.TxID)

		default:
			wait := sch.backoff.NextBackOff()
			if wait == backoff.Stop || now.Sub(rec.Time()) > t.giveUp {
				t.evHandler("tracker: Poll: txid[%s]: giving up: %s", rec.TxID, st.Kind)
				t.park(rec.TxID)
				continue
			}
			t.evHandler("tracker: Poll: txid[%s]: %s: retry in %s", rec.TxID, st.Kind, wait)
			t.reschedule(rec.TxID, now.Add(wait))
		}
	}

	t.prune(live)

	return updated
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// trackOperations handles polling for pending transactions.
func (t *Tracker) trackOperations() {
	t.evHandler("tracker: trackOperations: G started")
	defer t.evHandler("tracker: trackOperations: G completed")

	for {
		select {
		case <-t.ticker.C:
			if !t.isShutdown() {
				t.runPollOperation()
			}
		case <-t.poke:
			if !t.isShutdown() {
				t.runPollOperation()
			}
		case <-t.shut:
			t.evHandler("tracker: trackOperations: received shut signal")
			return
		}
	}
}

// runPollOperation runs one poll bounded by the shut signal.
func (t *Tracker) runPollOperation() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-t.shut:
			cancel()
		case <-ctx.Done():
		}
	}()

	t.Poll(ctx)
}

func (t *Tracker) status(ctx context.Context, txid string) broadcast.Status {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	return t.confirmer.Status(ctx, txid)
}

// scheduleFor returns the schedule of the record, creating it on first
// sight. A parked record returns nil.
func (t *Tracker) scheduleFor(rec history.Record) *schedule {
	t.mu.Lock()
	defer t.mu.Unlock()

	sch, exists := t.schedules[rec.TxID]
	if exists {
		return sch
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.interval
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0
	b.Reset()

	sch = &schedule{backoff: b}
	t.schedules[rec.TxID] = sch

	return sch
}

func (t *Tracker) reschedule(txid string, next time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sch, exists := t.schedules[txid]; exists && sch != nil {
		sch.next = next
	}
}

// park stops polling the txid until the process restarts.
func (t *Tracker) park(txid string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.schedules[txid] = nil
}

func (t *Tracker) forget(txid string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.schedules, txid)
}

// prune drops the schedules of records no longer pending.
func (t *Tracker) prune(live map[string]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for txid := range t.schedules {
		if !live[txid] {
			delete(t.schedules, txid)
		}
	}
}

// isShutdown is used to test if a Shutdown has been signaled.
func (t *Tracker) isShutdown() bool {
	select {
	case <-t.shut:
		return true
	default:
		return false
	}
}
