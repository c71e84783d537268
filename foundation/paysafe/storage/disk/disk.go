// Package disk implements the ability to read and write the client state to
// storage as separate JSON files.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/history"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/whitelist"
)

// Names of the files kept under the data directory.
const (
	settingsFile  = "settings.json"
	historyFile   = "history.json"
	whitelistFile = "whitelist.json"
)

// Disk represents the storage implementation for the settings, the history
// and the whitelist. This implements the settings.Store interface.
type Disk struct {
	mu     sync.Mutex
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0700); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Path returns the data directory.
func (d *Disk) Path() string {
	return d.dbPath
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Load implements the settings.Store interface.
func (d *Disk) Load() (settings.Config, bool, error) {
	var cfg settings.Config
	found, err := d.read(settingsFile, &cfg)
	if err != nil {
		return settings.Config{}, false, err
	}

	return cfg, found, nil
}

// Save implements the settings.Store interface.
func (d *Disk) Save(cfg settings.Config) error {
	return d.write(settingsFile, cfg)
}

// History returns the persisted records, newest first.
func (d *Disk) History() ([]history.Record, error) {
	var records []history.Record
	if _, err := d.read(historyFile, &records); err != nil {
		return nil, err
	}

	return records, nil
}

// SaveHistory is a history.Persister.
func (d *Disk) SaveHistory(records []history.Record) error {
	return d.write(historyFile, records)
}

// Whitelist returns the persisted book.
func (d *Disk) Whitelist() ([]whitelist.Entry, error) {
	var entries []whitelist.Entry
	if _, err := d.read(whitelistFile, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

// SaveWhitelist is a whitelist.Persister.
func (d *Disk) SaveWhitelist(entries []whitelist.Entry) error {
	return d.write(whitelistFile, entries)
}

// Reset will clear out everything on storage.
func (d *Disk) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.RemoveAll(d.dbPath); err != nil {
		return err
	}

	return os.MkdirAll(d.dbPath, 0700)
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// read decodes the named file into v. A file that doesn't exist leaves v
// untouched and reports false.
func (d *Disk) read(name string, v any) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.Open(d.getPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", name, err)
	}

	return true, nil
}

// write replaces the named file with v. The data is written to a temporary
// file in the same directory and renamed over the old one, so a crash never
// leaves a partial file behind.
func (d *Disk) write(name string, v any) error {

	// Marshal the value for writing to storage in a more human readable format.
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.CreateTemp(d.dbPath, name+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, d.getPath(name)); err != nil {
		os.Remove(tmp)
		return err
	}

	return nil
}

// getPath forms the path to the named file.
func (d *Disk) getPath(name string) string {
	return filepath.Join(d.dbPath, name)
}
