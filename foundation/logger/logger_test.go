package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/adamwoolhether/trxsafe/foundation/logger"
)

func TestEvHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core).Sugar()

	var got []string
	ev := logger.EvHandler(log, func(s string) { got = append(got, s) })

	ev("broadcast: Broadcast: started: txid[%s]", "aa")

	assert.Equal(t, []string{"broadcast: Broadcast: started: txid[aa]"}, got)
	if assert.Equal(t, 1, logs.Len()) {
		assert.Equal(t, "broadcast: Broadcast: started: txid[aa]", logs.All()[0].Message)
	}
}

func TestNew(t *testing.T) {
	log, err := logger.New("TEST", "stderr")
	assert.NoError(t, err)
	assert.NotNil(t, log)
}
