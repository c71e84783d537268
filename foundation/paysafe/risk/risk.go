// Package risk combines transaction verification with price heuristics and
// the whitelist into a single verdict shown to the user before signing.
package risk

import (
	"strings"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/tron/wire"
)

// Level is the severity of a verdict.
type Level int

// Set of levels in increasing severity.
const (
	Pass Level = iota
	Warn
	Block
)

func (l Level) String() string {
	switch l {
	case Warn:
		return "WARN"
	case Block:
		return "BLOCK"
	}
	return "PASS"
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Result is the verdict of an assessment.
type Result struct {
	Level                      Level  `json:"level"`
	Message                    string `json:"message,omitempty"`
	RequiresSecondConfirmation bool   `json:"requires_second_confirmation"`
}

// severity orders results: BLOCK > WARN(confirm) > WARN > PASS.
func (r Result) severity() int {
	switch {
	case r.Level == Block:
		return 3
	case r.Level == Warn && r.RequiresSecondConfirmation:
		return 2
	case r.Level == Warn:
		return 1
	}
	return 0
}

// merge returns the more severe of r and o. Warning messages accumulate.
func (r Result) merge(o Result) Result {
	if r.Level == Block {
		return r
	}
	if o.Level == Block {
		return o
	}

	out := r
	if o.severity() > r.severity() {
		out = o
	}
	out.RequiresSecondConfirmation = r.RequiresSecondConfirmation || o.RequiresSecondConfirmation

	var msgs []string
	for _, m := range []string{r.Message, o.Message} {
		if m != "" {
			msgs = append(msgs, m)
		}
	}
	out.Message = strings.Join(msgs, "; ")

	return out
}

// Whitelist reports whether a destination is trusted.
type Whitelist interface {
	IsWhitelisted(a address.Address) bool
}

// Engine runs assessments.
type Engine struct {
	verifier  *verify.Verifier
	whitelist Whitelist
}

// New constructs a risk engine.
func New(v *verify.Verifier, wl Whitelist) *Engine {
	return &Engine{
		verifier:  v,
		whitelist: wl,
	}
}

// Assess returns the verdict for paying tx from the address with cfg.
func (e *Engine) Assess(tx wire.Transaction, cfg settings.Config, from address.Address) Result {
	if err := e.verifier.Transaction(tx, cfg, from); err != nil {
		return Result{Level: Block, Message: payerr.UserMessage(err)}
	}

	res := e.priceTier(cfg)

	if e.whitelist == nil || !e.whitelist.IsWhitelisted(cfg.SellerAddress) {
		res = res.merge(Result{
			Level:                      Warn,
			Message:                    "destination is not in the whitelist",
			RequiresSecondConfirmation: true,
		})
	}

	return res
}

func (e *Engine) priceTier(cfg settings.Config) Result {
	p := e.verifier.Policy()

	switch price := cfg.PricePerUnit; {
	case price < p.MinPrice():
		return Result{Level: Warn, Message: "abnormally low price"}
	case price > p.MaxPrice():
		return Result{Level: Warn, Message: "abnormally high price", RequiresSecondConfirmation: true}
	}

	return Result{Level: Pass}
}
