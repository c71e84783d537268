package tracker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/broadcast"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/history"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/tracker"
)

type fakeConfirmer struct {
	mu       sync.Mutex
	recorder *history.Recorder
	statuses map[string]broadcast.Status
	queried  map[string]int
	polled   chan string
}

func newFakeConfirmer(records ...history.Record) *fakeConfirmer {
	return &fakeConfirmer{
		recorder: history.New(records, nil),
		statuses: make(map[string]broadcast.Status),
		queried:  make(map[string]int),
		polled:   make(chan string, 100),
	}
}

func (f *fakeConfirmer) Pending() []history.Record {
	return f.recorder.Pending()
}

func (f *fakeConfirmer) Status(ctx context.Context, txid string) broadcast.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queried[txid]++
	select {
	case f.polled <- txid:
	default:
	}
	return f.statuses[txid]
}

func (f *fakeConfirmer) Apply(txid string, st broadcast.Status) (bool, error) {
	return f.recorder.UpdateByTxid(txid, func(rec *history.Record) {
		rec.BlockHeight = st.BlockHeight
		if st.Kind == broadcast.StatusFailed {
			rec.Status = history.StatusFailure
		}
	})
}

func (f *fakeConfirmer) set(txid string, st broadcast.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statuses[txid] = st
}

func (f *fakeConfirmer) count(txid string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.queried[txid]
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

func TestPollAppliesFinalStatus(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := &clock{now: start}

	f := newFakeConfirmer(
		history.Record{TxID: "ok", Status: history.StatusSuccess, TimestampMs: start.UnixMilli()},
		history.Record{TxID: "bad", Status: history.StatusSuccess, TimestampMs: start.UnixMilli()},
	)
	f.set("ok", broadcast.Status{Kind: broadcast.StatusSuccess, BlockHeight: 10})
	f.set("bad", broadcast.Status{Kind: broadcast.StatusFailed, BlockHeight: 11, Reason: "REVERT"})

	tr := tracker.New(tracker.Config{Confirmer: f, Interval: time.Second, Now: clk.Now})

	assert.Equal(t, 2, tr.Poll(context.Background()))
	assert.Empty(t, f.Pending())

	rec, ok := f.recorder.Get("bad")
	require.True(t, ok)
	assert.Equal(t, history.StatusFailure, rec.Status)

	assert.Zero(t, tr.Poll(context.Background()))
	assert.Equal(t, 1, f.count("ok"))
}

func TestPollBacksOff(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := &clock{now: start}

	f := newFakeConfirmer(history.Record{TxID: "tx", Status: history.StatusSuccess, TimestampMs: start.UnixMilli()})
	f.set("tx", broadcast.Status{Kind: broadcast.StatusPending})

	tr := tracker.New(tracker.Config{Confirmer: f, Interval: time.Second, Now: clk.Now})
	ctx := context.Background()

	tr.Poll(ctx)
	assert.Equal(t, 1, f.count("tx"))

	tr.Poll(ctx)
	assert.Equal(t, 1, f.count("tx"), "not due yet")

	clk.Advance(time.Second)
	tr.Poll(ctx)
	assert.Equal(t, 2, f.count("tx"))

	clk.Advance(time.Second)
	tr.Poll(ctx)
	assert.Equal(t, 2, f.count("tx"), "the second wait is longer")

	clk.Advance(time.Second)
	f.set("tx", broadcast.Status{Kind: broadcast.StatusSuccess, BlockHeight: 99})
	assert.Equal(t, 1, tr.Poll(ctx))
	assert.Empty(t, f.Pending())
}

func TestPollGivesUp(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := &clock{now: start.Add(time.Hour)}

	f := newFakeConfirmer(history.Record{TxID: "lost", Status: history.StatusSuccess, TimestampMs: start.UnixMilli()})

	tr := tracker.New(tracker.Config{Confirmer: f, Interval: time.Second, GiveUp: time.Minute, Now: clk.Now})

	tr.Poll(context.Background())
	clk.Advance(time.Hour)
	tr.Poll(context.Background())

	assert.Equal(t, 1, f.count("lost"))
	assert.Len(t, f.Pending(), 1, "the record is left untouched")
}

func TestRunSignalShutdown(t *testing.T) {
	f := newFakeConfirmer(history.Record{TxID: "tx", Status: history.StatusSuccess, TimestampMs: time.Now().UnixMilli()})
	f.set("tx", broadcast.Status{Kind: broadcast.StatusSuccess, BlockHeight: 5})

	tr := tracker.New(tracker.Config{Confirmer: f, Interval: time.Hour})
	tr.Run()
	tr.Signal()

	select {
	case txid := <-f.polled:
		assert.Equal(t, "tx", txid)
	case <-time.After(5 * time.Second):
		t.Fatal("signal didn't trigger a poll")
	}

	tr.Shutdown()
}
