// Package policy holds the process wide security constants of the payment
// client. A Policy is constructed once at startup, asserted, and then only
// read.
package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

// ContractKind classifies a contract by what it would do on chain.
type ContractKind int

// Set of contract kinds.
const (
	KindUnknown ContractKind = iota
	KindTransfer
	KindTriggerSmartContract
	KindTRC20Transfer
	KindApprove
	KindTransferFrom
	KindCreateContract
	KindFreeze
	KindUnfreeze
)

var kindNames = map[ContractKind]string{
	KindUnknown:              "UNKNOWN",
	KindTransfer:             "TRANSFER",
	KindTriggerSmartContract: "TRIGGER_SMART_CONTRACT",
	KindTRC20Transfer:        "TRC20_TRANSFER",
	KindApprove:              "APPROVE",
	KindTransferFrom:         "TRANSFER_FROM",
	KindCreateContract:       "CREATE_CONTRACT",
	KindFreeze:               "FREEZE",
	KindUnfreeze:             "UNFREEZE",
}

func (k ContractKind) String() string {
	return kindNames[k]
}

// Function selectors of the token calls the policy names explicitly.
var (
	selectorTransfer     = [4]byte{0xa9, 0x05, 0x9c, 0xbb}
	selectorApprove      = [4]byte{0x09, 0x5e, 0xa7, 0xb3}
	selectorTransferFrom = [4]byte{0x23, 0xb8, 0x72, 0xdd}
)

// Classify maps a wire contract onto a contract kind. A transfer whose
// parameter isn't a TransferContract is unknown.
func Classify(c wire.Contract) ContractKind {
	switch c.Type {
	case wire.TransferContractType:
		if c.Parameter.TypeURL != wire.TypeURLTransfer {
			return KindUnknown
		}
		return KindTransfer

	case wire.TriggerSmartContractType:
		trig, err := wire.UnmarshalTrigger(c.Parameter.Value)
		if err != nil || len(trig.Data) < 4 {
			return KindTriggerSmartContract
		}
		var sel [4]byte
		copy(sel[:], trig.Data[:4])
		switch sel {
		case selectorTransfer:
			return KindTRC20Transfer
		case selectorApprove:
			return KindApprove
		case selectorTransferFrom:
			return KindTransferFrom
		}
		return KindTriggerSmartContract

	case wire.CreateSmartContract:
		return KindCreateContract

	case wire.FreezeBalanceContract, wire.FreezeBalanceV2Contract, wire.DelegateResourceContract:
		return KindFreeze

	case wire.UnfreezeBalanceContract, wire.UnfreezeBalanceV2Contract, wire.UnDelegateResourceContract:
		return KindUnfreeze
	}

	return KindUnknown
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Policy is the immutable table of security constants. Fields are unexported
// so nothing outside this package can change a value after construction.
type Policy struct {
	allowed   []ContractKind
	forbidden []ContractKind

	minTransfer amount.Micro
	maxTransfer amount.Micro

	minPrice      amount.Micro
	maxPrice      amount.Micro
	minMultiplier int
	maxMultiplier int

	expiration time.Duration
	feeLimit   amount.Micro

	allowDAppBrowser     bool
	allowSmartContract   bool
	rejectOnAnyException bool
	requireIntegerAmount bool
}

// Default constructs the policy the client runs with.
func Default() *Policy {
	return &Policy{
		allowed: []ContractKind{KindTransfer},
		forbidden: []ContractKind{
			KindTriggerSmartContract,
			KindTRC20Transfer,
			KindApprove,
			KindTransferFrom,
			KindCreateContract,
			KindFreeze,
			KindUnfreeze,
			KindUnknown,
		},

		minTransfer: 1,
		maxTransfer: 1_000_000_000_000,

		minPrice:      1_000,
		maxPrice:      10_000_000,
		minMultiplier: 1,
		maxMultiplier: 10,

		expiration: 60 * time.Second,
		feeLimit:   10_000_000,

		allowDAppBrowser:     false,
		allowSmartContract:   false,
		rejectOnAnyException: true,
		requireIntegerAmount: true,
	}
}

// Assert verifies every constraint of the policy. Any returned error must
// be treated as fatal by the caller.
func (p *Policy) Assert() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(len(p.allowed) == 1 && p.allowed[0] == KindTransfer, "allowed set must be exactly {TRANSFER}, got %v", p.allowed)
	for _, k := range []ContractKind{KindTriggerSmartContract, KindTRC20Transfer, KindApprove, KindTransferFrom, KindCreateContract, KindFreeze, KindUnfreeze, KindUnknown} {
		check(contains(p.forbidden, k), "forbidden set is missing %s", k)
	}
	check(!contains(p.forbidden, KindTransfer), "TRANSFER can't be forbidden")

	check(p.minTransfer == 1, "min transfer must be 1, got %d", p.minTransfer)
	check(p.maxTransfer == 1_000_000_000_000, "max transfer must be 10^12, got %d", p.maxTransfer)
	check(p.minPrice > 0 && p.minPrice < p.maxPrice, "price thresholds out of order")
	check(p.minMultiplier == 1 && p.maxMultiplier == 10, "multiplier range must be [1,10]")
	check(p.expiration > 0, "expiration window must be positive")

	check(!p.allowDAppBrowser, "dapp browser must be disabled")
	check(!p.allowSmartContract, "smart contracts must be disabled")
	check(p.rejectOnAnyException, "reject on any exception must be enabled")
	check(p.requireIntegerAmount, "integer amounts must be required")

	return errors.Join(errs...)
}

// IsAllowed reports whether the contract kind may be produced.
func (p *Policy) IsAllowed(k ContractKind) bool {
	return contains(p.allowed, k) && !contains(p.forbidden, k)
}

// IsForbidden reports whether the contract kind is explicitly forbidden.
func (p *Policy) IsForbidden(k ContractKind) bool {
	return contains(p.forbidden, k)
}

// CheckAmount verifies a transfer amount lies within the policy bounds.
func (p *Policy) CheckAmount(m amount.Micro) error {
	if m < p.minTransfer || m > p.maxTransfer {
		return fmt.Errorf("amount %d outside [%d, %d]", m, p.minTransfer, p.maxTransfer)
	}
	return nil
}

// Allowed returns a copy of the allowed contract kinds.
func (p *Policy) Allowed() []ContractKind {
	return append([]ContractKind(nil), p.allowed...)
}

// Forbidden returns a copy of the forbidden contract kinds.
func (p *Policy) Forbidden() []ContractKind {
	return append([]ContractKind(nil), p.forbidden...)
}

// MinPrice is the lowest unit price the settings accept.
func (p *Policy) MinPrice() amount.Micro { return p.minPrice }

// MaxPrice is the highest unit price the settings accept.
func (p *Policy) MaxPrice() amount.Micro { return p.maxPrice }

// MinMultiplier is the lowest multiplier the settings accept.
func (p *Policy) MinMultiplier() int { return p.minMultiplier }

// MaxMultiplier is the highest multiplier the settings accept.
func (p *Policy) MaxMultiplier() int { return p.maxMultiplier }

// Expiration is the lifetime of a built transaction.
func (p *Policy) Expiration() time.Duration { return p.expiration }

// FeeLimit is the fee ceiling written into a built transaction.
func (p *Policy) FeeLimit() amount.Micro { return p.feeLimit }

// AllowDAppBrowser reports whether dapp browsing is permitted.
func (p *Policy) AllowDAppBrowser() bool { return p.allowDAppBrowser }

// AllowSmartContract reports whether smart contract calls are permitted.
func (p *Policy) AllowSmartContract() bool { return p.allowSmartContract }

// RejectOnAnyException reports whether any internal error aborts the pipeline.
func (p *Policy) RejectOnAnyException() bool { return p.rejectOnAnyException }

// RequireIntegerAmount reports whether amounts must be integer micro-units.
func (p *Policy) RequireIntegerAmount() bool { return p.requireIntegerAmount }

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

func contains(set []ContractKind, k ContractKind) bool {
	for _, v := range set {
		if v == k {
			return true
		}
	}
	return false
}
