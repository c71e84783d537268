package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/trxsafe/foundation/events"
)

func TestFanOut(t *testing.T) {
	evts := events.New()

	a := evts.Acquire("a")
	b := evts.Acquire("b")
	assert.Equal(t, a, evts.Acquire("a"), "acquire is idempotent")
	assert.Equal(t, 2, evts.Count())

	evts.Send("broadcast: Broadcast: started: txid[aa]")

	assert.Equal(t, "broadcast: Broadcast: started: txid[aa]", <-a)
	assert.Equal(t, "broadcast: Broadcast: started: txid[aa]", <-b)

	require.NoError(t, evts.Release("a"))
	assert.Error(t, evts.Release("a"))

	_, open := <-a
	assert.False(t, open)

	evts.Shutdown()
	_, open = <-b
	assert.False(t, open)
	assert.Zero(t, evts.Count())
}

func TestSendDoesNotBlock(t *testing.T) {
	evts := events.New()
	ch := evts.Acquire("slow")

	for i := 0; i < 500; i++ {
		evts.Send("x")
	}

	assert.Len(t, ch, cap(ch))
}
