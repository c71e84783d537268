package amount_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want amount.Micro
		err  error
	}{
		{"integer", "15", 15_000_000, nil},
		{"one fraction digit", "0.5", 500_000, nil},
		{"six fraction digits", "1.000001", 1_000_001, nil},
		{"surrounding space", "  3.25 ", 3_250_000, nil},
		{"zero", "0", 0, nil},
		{"seven fraction digits", "1.0000001", 0, amount.ErrBadFormat},
		{"negative", "-1", 0, amount.ErrBadFormat},
		{"trailing dot", "1.", 0, amount.ErrBadFormat},
		{"leading dot", ".5", 0, amount.ErrBadFormat},
		{"exponent", "1e6", 0, amount.ErrBadFormat},
		{"empty", "", 0, amount.ErrBadFormat},
		{"comma", "1,5", 0, amount.ErrBadFormat},
		{"overflow", "9223372036855", 0, amount.ErrOverflow},
		{"overflow digits", "99999999999999999999", 0, amount.ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := amount.Parse(tt.text)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "15", amount.Format(15_000_000))
	assert.Equal(t, "0.000001", amount.Format(1))
	assert.Equal(t, "1.5", amount.Format(1_500_000))
	assert.Equal(t, "0", amount.Format(0))
	assert.Equal(t, "1.500000", amount.FormatWith(1_500_000, 6, false))
	assert.Equal(t, "1.50", amount.FormatWith(1_500_000, 2, false))
	assert.Equal(t, "1", amount.FormatWith(1_009_999, 2, true))
}

func TestFormatParseRoundTrip(t *testing.T) {
	inputs := map[string]string{
		"1":         "1",
		"1.0":       "1",
		"1.500000":  "1.5",
		"007.25":    "7.25",
		"0.000001":  "0.000001",
		"123456.78": "123456.78",
		"10.10":     "10.1",
	}

	for in, canonical := range inputs {
		m, err := amount.Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, canonical, amount.Format(m), in)

		c, err := amount.Canonical(in)
		require.NoError(t, err)
		assert.Equal(t, canonical, c)
	}
}

func TestMul(t *testing.T) {
	got, err := amount.Mul(5_000_000, 3)
	require.NoError(t, err)
	assert.Equal(t, amount.Micro(15_000_000), got)

	_, err = amount.Mul(amount.Micro(1<<62), 4)
	assert.ErrorIs(t, err, amount.ErrOverflow)
}
