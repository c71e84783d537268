package settings

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/policy"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/amount"
	"github.com/adamwoolhether/trxsafe/foundation/validate"
)

// Field names reported by validation results.
const (
	FieldSellerAddress = "seller_address"
	FieldPrice         = "price_per_unit"
	FieldMultiplier    = "multiplier"
	FieldNodeEndpoint  = "node_endpoint"
)

// Outcome is the kind of a validation result.
type Outcome int

// Set of outcomes.
const (
	Success Outcome = iota
	Error
	Warning
)

func (o Outcome) String() string {
	switch o {
	case Error:
		return "error"
	case Warning:
		return "warning"
	}
	return "success"
}

// Result is what every validation returns.
type Result struct {
	Outcome              Outcome `json:"outcome"`
	Field                string  `json:"field,omitempty"`
	Message              string  `json:"message,omitempty"`
	RequiresConfirmation bool    `json:"requires_confirmation,omitempty"`
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Outcome == Success
}

func ok() Result {
	return Result{Outcome: Success}
}

func fail(field, format string, args ...any) Result {
	return Result{Outcome: Error, Field: field, Message: fmt.Sprintf(format, args...)}
}

func warn(field, msg string, confirm bool) Result {
	return Result{Outcome: Warning, Field: field, Message: msg, RequiresConfirmation: confirm}
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

var integerPattern = regexp.MustCompile(`^\d+$`)

// Validator enforces the bounds and invariants of a Config.
type Validator struct {
	policy *policy.Policy
}

// NewValidator constructs a validator bound to the policy.
func NewValidator(p *policy.Policy) Validator {
	return Validator{policy: p}
}

// ValidateSellerAddress checks the seller is a non empty account address.
func (v Validator) ValidateSellerAddress(text string) (address.Address, Result) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fail(FieldSellerAddress, "seller address is required")
	}

	a, err := address.Parse(text)
	if err != nil {
		return "", fail(FieldSellerAddress, "invalid address")
	}
	if a.Kind() != address.KindAccount {
		return "", fail(FieldSellerAddress, "contract addresses can't receive payments")
	}

	return a, ok()
}

// ValidatePrice checks the unit price lies within the policy range.
func (v Validator) ValidatePrice(p amount.Micro) Result {
	if p <= 0 {
		return fail(FieldPrice, "price must be greater than zero")
	}
	if p < v.policy.MinPrice() || p > v.policy.MaxPrice() {
		return fail(FieldPrice, "price out of range [%s, %s]", amount.Format(v.policy.MinPrice()), amount.Format(v.policy.MaxPrice()))
	}

	return ok()
}

// ValidatePriceText parses decimal token text and checks the result.
func (v Validator) ValidatePriceText(text string) (amount.Micro, Result) {
	p, err := amount.Parse(text)
	if err != nil {
		return 0, fail(FieldPrice, "invalid amount format")
	}

	if r := v.ValidatePrice(p); !r.OK() {
		return 0, r
	}

	return p, ok()
}

// ValidateMultiplier checks the multiplier lies within the policy range.
func (v Validator) ValidateMultiplier(m int) Result {
	if m < v.policy.MinMultiplier() || m > v.policy.MaxMultiplier() {
		return fail(FieldMultiplier, "multiplier must be between %d and %d", v.policy.MinMultiplier(), v.policy.MaxMultiplier())
	}

	return ok()
}

// ValidateMultiplierText parses integer text and checks the result.
func (v Validator) ValidateMultiplierText(text string) (int, Result) {
	text = strings.TrimSpace(text)
	if !integerPattern.MatchString(text) {
		return 0, fail(FieldMultiplier, "multiplier must be an integer")
	}

	m, err := strconv.Atoi(text)
	if err != nil {
		return 0, fail(FieldMultiplier, "multiplier must be an integer")
	}

	if r := v.ValidateMultiplier(m); !r.OK() {
		return 0, r
	}

	return m, ok()
}

// ValidateNodeEndpoint checks the informational node endpoint. An empty
// endpoint is allowed.
func (v Validator) ValidateNodeEndpoint(endpoint string) Result {
	if endpoint == "" {
		return ok()
	}
	if err := validate.Var(FieldNodeEndpoint, endpoint, "url"); err != nil {
		return fail(FieldNodeEndpoint, "node endpoint must be a valid URL")
	}

	return ok()
}

// ValidateConfig checks the seller, the price and the multiplier in that
// order and returns the first result that isn't a success.
func (v Validator) ValidateConfig(c Config) Result {
	if _, r := v.ValidateSellerAddress(c.SellerAddress.String()); !r.OK() {
		return r
	}
	if r := v.ValidatePrice(c.PricePerUnit); !r.OK() {
		return r
	}
	if r := v.ValidateMultiplier(c.Multiplier); !r.OK() {
		return r
	}

	return ok()
}
