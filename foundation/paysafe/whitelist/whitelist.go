// Package whitelist maintains the user's book of trusted destinations the
// risk engine consults.
package whitelist

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
	"github.com/adamwoolhether/trxsafe/foundation/validate"
)

// ErrNotFound is returned when the address isn't in the book.
var ErrNotFound = errors.New("whitelist: address not found")

// Entry is a row of the book.
type Entry struct {
	Name          string          `json:"name" validate:"required,max=64"`
	Address       address.Address `json:"address" validate:"required,tronaddr"`
	IsWhitelisted bool            `json:"is_whitelisted"`
	CreateTime    time.Time       `json:"create_time"`
	Notes         string          `json:"notes" validate:"max=256"`
}

// Persister is called with a snapshot of the book after every change.
type Persister func(entries []Entry) error

// Book is the set of known destinations keyed by address. Changes persist
// in the order they were applied.
type Book struct {
	pmu     sync.Mutex
	mu      sync.RWMutex
	entries map[address.Address]Entry
	persist Persister
}

// New constructs a book holding the entries. A nil persister keeps the book
// in memory only.
func New(entries []Entry, persist Persister) *Book {
	b := Book{
		entries: make(map[address.Address]Entry, len(entries)),
		persist: persist,
	}
	for _, e := range entries {
		b.entries[e.Address] = e
	}

	return &b
}

// Add validates the entry and stores it, replacing any entry for the same
// address. A zero create time is set to now.
func (b *Book) Add(e Entry) error {
	e.Name = strings.TrimSpace(e.Name)
	if err := validate.Check(e); err != nil {
		return err
	}
	if e.CreateTime.IsZero() {
		e.CreateTime = time.Now().UTC()
	}

	b.pmu.Lock()
	defer b.pmu.Unlock()

	b.mu.Lock()
	b.entries[e.Address] = e
	snap := b.snapshot()
	b.mu.Unlock()

	return b.save(snap)
}

// Remove deletes the entry for the address.
func (b *Book) Remove(a address.Address) error {
	b.pmu.Lock()
	defer b.pmu.Unlock()

	b.mu.Lock()
	if _, exists := b.entries[a]; !exists {
		b.mu.Unlock()
		return ErrNotFound
	}
	delete(b.entries, a)
	snap := b.snapshot()
	b.mu.Unlock()

	return b.save(snap)
}

// Get returns the entry for the address.
func (b *Book) Get(a address.Address) (Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, exists := b.entries[a]
	if !exists {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// List returns a copy of the book ordered by creation time.
func (b *Book) List() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.snapshot()
}

// IsWhitelisted reports whether the address is in the book and flagged as
// trusted.
func (b *Book) IsWhitelisted(a address.Address) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, exists := b.entries[a]
	return exists && e.IsWhitelisted
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// snapshot must be called with the lock held.
func (b *Book) snapshot() []Entry {
	entries := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreateTime.Equal(entries[j].CreateTime) {
			return entries[i].Address < entries[j].Address
		}
		return entries[i].CreateTime.Before(entries[j].CreateTime)
	})

	return entries
}

func (b *Book) save(entries []Entry) error {
	if b.persist == nil {
		return nil
	}
	if err := b.persist(entries); err != nil {
		return fmt.Errorf("persisting whitelist: %w", err)
	}
	return nil
}
