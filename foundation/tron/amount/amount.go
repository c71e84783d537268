// Package amount converts between decimal token text and integer micro-units.
// All money arithmetic in the system is done on Micro values; floats are
// never involved.
package amount

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PerToken is the number of micro-units in one token.
const PerToken = 1_000_000

// Decimals is the number of fractional digits a token carries.
const Decimals = 6

// Set of errors returned by the codec.
var (
	ErrBadFormat = errors.New("amount: bad format")
	ErrOverflow  = errors.New("amount: overflow")
)

var pattern = regexp.MustCompile(`^\d+(\.\d{1,6})?$`)

// Micro is an integer count of the smallest indivisible token unit.
type Micro int64

// Parse converts decimal text like "12.5" into micro-units.
func Parse(text string) (Micro, error) {
	text = strings.TrimSpace(text)
	if !pattern.MatchString(text) {
		return 0, ErrBadFormat
	}

	left, right, _ := strings.Cut(text, ".")

	whole, err := strconv.ParseInt(left, 10, 64)
	if err != nil {
		return 0, ErrOverflow
	}
	if whole > math.MaxInt64/PerToken {
		return 0, ErrOverflow
	}

	var frac int64
	if right != "" {
		right += strings.Repeat("0", Decimals-len(right))
		if frac, err = strconv.ParseInt(right, 10, 64); err != nil {
			return 0, ErrBadFormat
		}
	}

	sum := whole*PerToken + frac
	if sum < 0 {
		return 0, ErrOverflow
	}

	return Micro(sum), nil
}

// Format renders micro-units as token text with six decimals and
// trailing zeros trimmed.
func Format(m Micro) string {
	return FormatWith(m, Decimals, true)
}

// FormatWith renders micro-units as token text with the specified number of
// decimals. Digits beyond decimals are truncated toward zero.
func FormatWith(m Micro, decimals int, trimZeros bool) string {
	if decimals < 0 {
		decimals = 0
	}
	if decimals > Decimals {
		decimals = Decimals
	}

	d := decimal.New(int64(m), -Decimals).Truncate(int32(decimals))
	s := d.StringFixed(int32(decimals))

	if trimZeros && strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}

	return s
}

// Canonical returns the canonical spelling of accepted text: the form
// Format produces for the parsed value.
func Canonical(text string) (string, error) {
	m, err := Parse(text)
	if err != nil {
		return "", err
	}

	return Format(m), nil
}

// Mul multiplies a by n and reports overflow instead of wrapping.
func Mul(a Micro, n int64) (Micro, error) {
	if a < 0 || n < 0 {
		return 0, ErrOverflow
	}
	if n != 0 && int64(a) > math.MaxInt64/n {
		return 0, ErrOverflow
	}

	return Micro(int64(a) * n), nil
}

// String implements the fmt.Stringer interface.
func (m Micro) String() string {
	return Format(m)
}
