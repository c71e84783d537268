// Package settings maintains the payment contract the user binds the client
// to: who gets paid, the locked unit price and the multiplier.
package settings

import (
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
)

// Config is the user bound payment contract.
type Config struct {
	SellerAddress     address.Address `json:"seller_address"`
	PricePerUnit      amount.Micro    `json:"price_per_unit"`
	Multiplier        int             `json:"multiplier"`
	PriceLocked       bool            `json:"price_locked"`
	FirstTimeAddress  bool            `json:"first_time_address"`
	NodeEndpoint      string          `json:"node_endpoint"`
	BiometricRequired bool            `json:"biometric_required"`
}

// New constructs the empty configuration a fresh install starts with.
func New() Config {
	return Config{
		Multiplier:       1,
		FirstTimeAddress: true,
	}
}

// Total returns pricePerUnit × multiplier.
func (c Config) Total() (amount.Micro, error) {
	if c.Multiplier < 0 {
		return 0, amount.ErrOverflow
	}
	return amount.Mul(c.PricePerUnit, int64(c.Multiplier))
}

// MustTotal returns the total or zero when it can't be computed.
func (c Config) MustTotal() amount.Micro {
	total, err := c.Total()
	if err != nil {
		return 0
	}
	return total
}

// IsComplete reports whether the configuration can produce a payment.
func (c Config) IsComplete() bool {
	if c.SellerAddress.IsZero() || c.PricePerUnit <= 0 || c.Multiplier < 1 {
		return false
	}

	return c.MustTotal() > 0
}
