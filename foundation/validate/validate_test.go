package validate_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/validate"
)

type entry struct {
	Name    string `json:"name" validate:"required,max=64"`
	Address string `json:"address" validate:"required,tronaddr"`
}

func TestCheck(t *testing.T) {
	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := address.FromPublicKey(pk.PublicKey)

	assert.NoError(t, validate.Check(entry{Name: "shop", Address: addr.String()}))

	err = validate.Check(entry{Address: "not-an-address"})
	require.Error(t, err)
	require.True(t, validate.IsFieldErrors(err))

	fields := validate.GetFieldErrors(err).Fields()
	assert.Contains(t, fields, "name")
	assert.Equal(t, "address must be a valid account address", fields["address"])
}

func TestVar(t *testing.T) {
	assert.NoError(t, validate.Var("endpoint", "https://api.trongrid.io", "url"))

	err := validate.Var("endpoint", "nope", "url")
	require.Error(t, err)
	assert.Contains(t, validate.GetFieldErrors(err).Fields(), "endpoint")
}
