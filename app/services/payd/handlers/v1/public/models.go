package public

import (
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
)

type config struct {
	SellerAddress     address.Address `json:"seller_address"`
	PricePerUnit      string          `json:"price_per_unit"`
	Multiplier        int             `json:"multiplier"`
	Total             string          `json:"total"`
	PriceLocked       bool            `json:"price_locked"`
	FirstTimeAddress  bool            `json:"first_time_address"`
	NodeEndpoint      string          `json:"node_endpoint"`
	BiometricRequired bool            `json:"biometric_required"`
	Complete          bool            `json:"complete"`
}

func toConfig(c settings.Config) config {
	return config{
		SellerAddress:     c.SellerAddress,
		PricePerUnit:      amount.Format(c.PricePerUnit),
		Multiplier:        c.Multiplier,
		Total:             amount.Format(c.MustTotal()),
		PriceLocked:       c.PriceLocked,
		FirstTimeAddress:  c.FirstTimeAddress,
		NodeEndpoint:      c.NodeEndpoint,
		BiometricRequired: c.BiometricRequired,
		Complete:          c.IsComplete(),
	}
}

type setSeller struct {
	Address      string `json:"address" validate:"required"`
	Confirmation string `json:"confirmation"`
}

type setPrice struct {
	Price string `json:"price" validate:"required"`
}

type setMultiplier struct {
	Multiplier string `json:"multiplier" validate:"required"`
}

type setEndpoint struct {
	Endpoint string `json:"endpoint"`
}

type setBiometric struct {
	Required bool `json:"required"`
}

type result struct {
	Outcome              string `json:"outcome"`
	Field                string `json:"field,omitempty"`
	Message              string `json:"message,omitempty"`
	RequiresConfirmation bool   `json:"requires_confirmation,omitempty"`
	Config               config `json:"config"`
}

type newEntry struct {
	Name    string `json:"name" validate:"required,max=64"`
	Address string `json:"address" validate:"required,tronaddr"`
	Notes   string `json:"notes" validate:"max=256"`
}

type prepare struct {
	From       string `json:"from"`
	NodeSeeded bool   `json:"node_seeded"`
}

type submit struct {
	Confirmed bool `json:"confirmed"`
}

type importSigned struct {
	Fragments []string `json:"fragments" validate:"required,min=1,dive,required"`
	Confirmed bool     `json:"confirmed"`
}

type submitted struct {
	TxID string `json:"txid"`
}

type fragments struct {
	Total     int      `json:"total"`
	Fragments []string `json:"fragments"`
}

type balance struct {
	Address address.Address `json:"address"`
	Balance string          `json:"balance"`
	Micro   amount.Micro    `json:"balance_micro"`
}

type status struct {
	TxID        string       `json:"txid"`
	Status      string       `json:"status"`
	BlockHeight int64        `json:"block_height,omitempty"`
	Fee         amount.Micro `json:"fee_micro,omitempty"`
	NetUsage    int64        `json:"net_usage,omitempty"`
	EnergyUsage int64        `json:"energy_usage,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}

type saveConfig struct {
	SellerAddress     string `json:"seller_address" validate:"required"`
	Price             string `json:"price" validate:"required"`
	Multiplier        string `json:"multiplier" validate:"required"`
	NodeEndpoint      string `json:"node_endpoint"`
	BiometricRequired bool   `json:"biometric_required"`
}
