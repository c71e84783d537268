// Package state is the core API for a payment and runs it through every
// stage: reference block, build, risk, sign and broadcast.
package state

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/broadcast"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/builder"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/risk"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/signer"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/verify"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
)

// Set of errors returned by Submit.
var (
	ErrNotFound             = errors.New("payment not found")
	ErrBlocked              = errors.New("payment blocked")
	ErrConfirmationRequired = errors.New("second confirmation required")
)

// EventHandler defines a function that is called when events occur in the
// processing of a payment.
type EventHandler func(v string, args ...any)

// Tracker interface represents the behavior required of the package that
// follows broadcast transactions.
type Tracker interface {
	Signal()
	Shutdown()
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Config represents the configuration required to run payments.
type Config struct {
	Settings    *settings.Manager
	Verifier    *verify.Verifier
	Builder     *builder.Builder
	Risk        *risk.Engine
	Signer      signer.Signer
	Broadcaster *broadcast.Broadcaster
	Node        broadcast.Node
	NodeTimeout time.Duration
	Now         func() time.Time
	EvHandler   EventHandler
}

// State manages the payments prepared and not yet submitted.
type State struct {
	mu       sync.RWMutex
	prepared map[string]Payment

	settings    *settings.Manager
	verifier    *verify.Verifier
	builder     *builder.Builder
	risk        *risk.Engine
	signer      signer.Signer
	broadcaster *broadcast.Broadcaster
	node        broadcast.Node
	nodeTimeout time.Duration
	now         func() time.Time
	evHandler   EventHandler

	Tracker Tracker
}

// New constructs the state for payment processing.
func New(cfg Config) (*State, error) {
	// Build a safe event handler for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	switch {
	case cfg.Settings == nil:
		return nil, errors.New("settings are required")
	case cfg.Verifier == nil:
		return nil, errors.New("verifier is required")
	case cfg.Builder == nil:
		return nil, errors.New("builder is required")
	case cfg.Risk == nil:
		return nil, errors.New("risk engine is required")
	case cfg.Broadcaster == nil:
		return nil, errors.New("broadcaster is required")
	case cfg.Node == nil:
		return nil, errors.New("node is required")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	timeout := cfg.NodeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	state := State{
		prepared:    make(map[string]Payment),
		settings:    cfg.Settings,
		verifier:    cfg.Verifier,
		builder:     cfg.Builder,
		risk:        cfg.Risk,
		signer:      cfg.Signer,
		broadcaster: cfg.Broadcaster,
		node:        cfg.Node,
		nodeTimeout: timeout,
		now:         now,
		evHandler:   ev,
	}

	// The Tracker is not set here. The caller assigns it once it has been
	// constructed over the broadcaster.

	return &state, nil
}

// Shutdown cleanly brings payment processing down.
func (s *State) Shutdown() error {
	s.evHandler("state: Shutdown: started")
	defer s.evHandler("state: Shutdown: completed")

	if s.Tracker != nil {
		s.Tracker.Shutdown()
	}

	return nil
}

// Settings returns the settings manager.
func (s *State) Settings() *settings.Manager {
	return s.settings
}

// Broadcaster returns the broadcaster.
func (s *State) Broadcaster() *broadcast.Broadcaster {
	return s.broadcaster
}

// Address returns the address payments are made from. It's empty when the
// state has no signer.
func (s *State) Address() address.Address {
	if s.signer == nil {
		return ""
	}
	return s.signer.Address()
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Payment returns the prepared payment for the id.
func (s *State) Payment(id string) (Payment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.prepared[id]
	return p, exists
}

// Payments returns every prepared payment, oldest first.
func (s *State) Payments() []Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Payment, 0, len(s.prepared))
	for _, p := range s.prepared {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Created.Before(out[j].Created)
	})

	return out
}

// Discard drops the prepared payment.
func (s *State) Discard(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.prepared[id]
	delete(s.prepared, id)

	if exists {
		s.evHandler("state: Discard: id[%s]", id)
	}
	return exists
}

func (s *State) hold(p Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, old := range s.prepared {
		if !old.Expiration.After(now) {
			delete(s.prepared, id)
		}
	}

	s.prepared[p.ID] = p
}

// take removes the payment so it can only be submitted once.
func (s *State) take(id string) (Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.prepared[id]
	delete(s.prepared, id)
	return p, exists
}

func newID() string {
	return uuid.NewString()
}
