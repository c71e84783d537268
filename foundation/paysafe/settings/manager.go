package settings

import (
	"errors"
	"fmt"
	"sync"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/policy"
)

// ErrPriceLocked is returned when the price is changed while locked.
var ErrPriceLocked = payerr.BadInput(FieldPrice, "price is locked")

// ErrSellerUnconfirmed is returned when a configuration is saved for a seller
// that hasn't been set and confirmed.
var ErrSellerUnconfirmed = payerr.BadInput(FieldSellerAddress, "set and confirm the seller address first")

// Store persists the configuration. Implementations must write atomically.
type Store interface {
	Load() (Config, bool, error)
	Save(cfg Config) error
}

// Manager is the settings store. Writes are serialised, reads return
// snapshots.
type Manager struct {
	wmu sync.Mutex

	mu  sync.RWMutex
	cfg Config

	store     Store
	validator Validator
}

// NewManager constructs a manager and loads the persisted configuration. A
// store with nothing saved yields the empty configuration.
func NewManager(store Store, p *policy.Policy) (*Manager, error) {
	cfg, found, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if !found {
		cfg = New()
	}

	m := Manager{
		cfg:       cfg,
		store:     store,
		validator: NewValidator(p),
	}

	return &m, nil
}

// Validator returns the validator the manager guards writes with.
func (m *Manager) Validator() Validator {
	return m.validator
}

// Snapshot returns a copy of the current configuration.
func (m *Manager) Snapshot() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.cfg
}

// SetSellerAddress stores a new seller address. While the configuration has
// never stored an address, confirmation must repeat the address exactly; the
// returned result then asks for it. Changing the seller clears the price and
// the price lock.
func (m *Manager) SetSellerAddress(text, confirmation string) (Result, error) {
	a, r := m.validator.ValidateSellerAddress(text)
	if !r.OK() {
		return r, payerr.BadInput(r.Field, r.Message)
	}

	var res Result
	err := m.update(func(cfg *Config) error {
		if cfg.FirstTimeAddress && confirmation != a.String() {
			res = warn(FieldSellerAddress, "confirm the seller address by entering it a second time", true)
			return errSkip
		}

		if cfg.SellerAddress != a {
			cfg.PricePerUnit = 0
			cfg.PriceLocked = false
		}
		cfg.SellerAddress = a
		cfg.FirstTimeAddress = false

		res = ok()
		return nil
	})

	return res, err
}

// SetPrice parses and stores the unit price. It fails while the price is
// locked.
func (m *Manager) SetPrice(text string) (Result, error) {
	p, r := m.validator.ValidatePriceText(text)
	if !r.OK() {
		return r, payerr.BadInput(r.Field, r.Message)
	}

	err := m.update(func(cfg *Config) error {
		if cfg.PriceLocked {
			return ErrPriceLocked
		}
		cfg.PricePerUnit = p
		return nil
	})
	if errors.Is(err, ErrPriceLocked) {
		return fail(FieldPrice, "price is locked"), err
	}
	if err != nil {
		return Result{}, err
	}

	return ok(), nil
}

// SetMultiplier parses and stores the multiplier.
func (m *Manager) SetMultiplier(text string) (Result, error) {
	n, r := m.validator.ValidateMultiplierText(text)
	if !r.OK() {
		return r, payerr.BadInput(r.Field, r.Message)
	}

	return ok(), m.update(func(cfg *Config) error {
		cfg.Multiplier = n
		return nil
	})
}

// SetBiometric toggles the biometric requirement.
func (m *Manager) SetBiometric(required bool) error {
	return m.update(func(cfg *Config) error {
		cfg.BiometricRequired = required
		return nil
	})
}

// SetNodeEndpoint stores the informational node endpoint.
func (m *Manager) SetNodeEndpoint(endpoint string) (Result, error) {
	if r := m.validator.ValidateNodeEndpoint(endpoint); !r.OK() {
		return r, payerr.BadInput(r.Field, r.Message)
	}

	return ok(), m.update(func(cfg *Config) error {
		cfg.NodeEndpoint = endpoint
		return nil
	})
}

// UnlockPrice clears the price lock. It's the only way to clear it.
func (m *Manager) UnlockPrice() error {
	return m.update(func(cfg *Config) error {
		cfg.PriceLocked = false
		return nil
	})
}

// SaveConfig validates and stores a complete configuration and locks its
// price. The seller must already be set through SetSellerAddress, and a
// locked price can't be replaced by a different one.
func (m *Manager) SaveConfig(c Config) (Result, error) {
	if r := m.validator.ValidateConfig(c); !r.OK() {
		return r, payerr.BadInput(r.Field, r.Message)
	}
	if r := m.validator.ValidateNodeEndpoint(c.NodeEndpoint); !r.OK() {
		return r, payerr.BadInput(r.Field, r.Message)
	}

	err := m.update(func(cfg *Config) error {
		if cfg.FirstTimeAddress || cfg.SellerAddress != c.SellerAddress {
			return ErrSellerUnconfirmed
		}
		if cfg.PriceLocked && cfg.PricePerUnit != c.PricePerUnit {
			return ErrPriceLocked
		}

		cfg.PricePerUnit = c.PricePerUnit
		cfg.Multiplier = c.Multiplier
		cfg.NodeEndpoint = c.NodeEndpoint
		cfg.BiometricRequired = c.BiometricRequired
		cfg.PriceLocked = true
		return nil
	})
	switch {
	case errors.Is(err, ErrSellerUnconfirmed):
		return fail(FieldSellerAddress, "set and confirm the seller address first"), err
	case errors.Is(err, ErrPriceLocked):
		return fail(FieldPrice, "price is locked"), err
	}
	if err != nil {
		return Result{}, err
	}

	return ok(), nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// errSkip aborts an update without error.
var errSkip = errors.New("skip")

// update applies fn to a copy of the configuration, persists the copy and
// only then publishes it. Persistence happens outside the read lock.
func (m *Manager) update(fn func(cfg *Config) error) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()

	cfg := m.Snapshot()
	if err := fn(&cfg); err != nil {
		if errors.Is(err, errSkip) {
			return nil
		}
		return err
	}

	if err := m.store.Save(cfg); err != nil {
		return fmt.Errorf("persisting settings: %w", err)
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()

	return nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// MemoryStore keeps the configuration in memory. It's used by tests and by
// the cold signer that never persists anything.
type MemoryStore struct {
	mu    sync.Mutex
	cfg   Config
	saved bool
}

// Load implements the Store interface.
func (s *MemoryStore) Load() (Config, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cfg, s.saved, nil
}

// Save implements the Store interface.
func (s *MemoryStore) Save(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg
	s.saved = true
	return nil
}
