// Package autostart is the application-level record of which instances
// should be relaunched when the user logs in. It is independent of the
// platform startup mechanism: the startup manager reads it at boot.
//
// The whole registry is one JSON object, instance id → AutoStartEntry,
// rewritten in full on every mutation. A missing or unreadable file loads as
// an empty registry.
package autostart

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zjrosen/smartnotes/internal/instance"
	"github.com/zjrosen/smartnotes/internal/log"
)

// Registry is safe for concurrent use within one process. Nothing guards
// the file against other processes.
type Registry struct {
	mu      sync.RWMutex
	path    string
	entries map[string]instance.AutoStartEntry
	now     func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for enablement stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Open loads the registry at path.
func Open(path string, opts ...Option) *Registry {
	r := &Registry{
		path:    path,
		entries: make(map[string]instance.AutoStartEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Reload()
	return r
}

// Path returns the backing file.
func (r *Registry) Path() string {
	return r.path
}

// Reload replaces the in-memory state with the file's contents.
func (r *Registry) Reload() {
	entries, err := readEntries(r.path)
	if err != nil {
		log.Warn(log.CatAutoStart, "Resetting unreadable auto-start registry", "path", r.path, "error", err)
		entries = make(map[string]instance.AutoStartEntry)
	}
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
}

func readEntries(path string) (map[string]instance.AutoStartEntry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: registry path from config
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]instance.AutoStartEntry), nil
	}
	if err != nil {
		return nil, err
	}
	var entries map[string]instance.AutoStartEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = make(map[string]instance.AutoStartEntry)
	}
	for id, e := range entries {
		// The map key is authoritative; older files omit instance_id.
		e.ID = id
		e.Normalize()
		entries[id] = e
	}
	return entries, nil
}

// Add records inst as auto-start enabled. Re-adding an existing entry
// refreshes its metadata but keeps the original enablement time.
func (r *Registry) Add(inst instance.Instance) error {
	if inst.ID == "" {
		return errors.New("auto-start: empty instance id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	enabled := instance.At(r.now())
	prev, existed := r.entries[inst.ID]
	if existed && !prev.AutoStartEnabled.IsZero() {
		enabled = prev.AutoStartEnabled
	}
	r.entries[inst.ID] = instance.AutoStartEntry{Instance: inst, AutoStartEnabled: enabled}
	if err := r.saveLocked(); err != nil {
		if existed {
			r.entries[inst.ID] = prev
		} else {
			delete(r.entries, inst.ID)
		}
		return err
	}
	log.Info(log.CatAutoStart, "Auto-start enabled", "id", inst.ID, "name", inst.Name)
	return nil
}

// UpdateMetadata refreshes the snapshot for an existing entry, keeping its
// enablement time. updated is false when id is not registered.
func (r *Registry) UpdateMetadata(inst instance.Instance) (updated bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.entries[inst.ID]
	if !ok {
		return false, nil
	}
	r.entries[inst.ID] = instance.AutoStartEntry{Instance: inst, AutoStartEnabled: prev.AutoStartEnabled}
	if err := r.saveLocked(); err != nil {
		r.entries[inst.ID] = prev
		return false, err
	}
	return true, nil
}

// Remove drops id. Removing an absent id succeeds without touching the file.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.entries[id]
	if !ok {
		return nil
	}
	delete(r.entries, id)
	if err := r.saveLocked(); err != nil {
		r.entries[id] = prev
		return err
	}
	log.Info(log.CatAutoStart, "Auto-start disabled", "id", id)
	return nil
}

// Clear removes every entry.
func (r *Registry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.entries
	r.entries = make(map[string]instance.AutoStartEntry)
	if err := r.saveLocked(); err != nil {
		r.entries = prev
		return err
	}
	return nil
}

// IsEnabled reports whether id is registered.
func (r *Registry) IsEnabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (instance.AutoStartEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// List returns a copy of all entries. Mutating it does not affect the
// registry.
func (r *Registry) List() map[string]instance.AutoStartEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.entries)
}

// Count returns the number of entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) saveLocked() error {
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding auto-start registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		log.ErrorErr(log.CatAutoStart, "Failed to save auto-start registry", err, "path", r.path)
		return fmt.Errorf("saving auto-start registry: %w", err)
	}
	return nil
}
