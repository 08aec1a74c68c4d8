// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cachefile persists string-keyed JSON maps used as request caches.
// Each Map is backed by one file holding a single JSON object; entries load
// lazily on first access and every Put rewrites the file atomically.
package cachefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Map is a string-keyed JSON cache backed by a single file. The zero value
// is not usable; create one with Open. A Map is safe for concurrent use.
type Map struct {
	path string

	mu      sync.Mutex
	entries map[string]json.RawMessage
}

// Open returns a Map backed by the file at path. The file is not touched
// until the first Get or Put; a missing file reads as an empty map.
func Open(path string) *Map {
	return &Map{path: path}
}

// Path returns the backing file path.
func (m *Map) Path() string { return m.path }

// Get looks up key and unmarshals the cached entry into v. The boolean
// reports whether the key was present.
func (m *Map) Get(key string, v interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.load(); err != nil {
		return false, err
	}
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("parsing cache entry %q: %w", key, err)
	}
	return true, nil
}

// Put stores v under key and rewrites the backing file.
func (m *Map) Put(key string, v interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.load(); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache entry %q: %w", key, err)
	}
	m.entries[key] = raw
	return m.save()
}

// Keys returns the cached keys in sorted order.
func (m *Map) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.load(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// load reads the backing file on first access. Callers hold mu.
func (m *Map) load() error {
	if m.entries != nil {
		return nil
	}
	b, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		m.entries = make(map[string]json.RawMessage)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading cache %s: %w", m.path, err)
	}
	if err := json.Unmarshal(b, &m.entries); err != nil {
		return fmt.Errorf("parsing cache %s: %w", m.path, err)
	}
	if m.entries == nil {
		// File contained JSON null.
		m.entries = make(map[string]json.RawMessage)
	}
	return nil
}

// save writes the whole map to the backing file via tmp + rename. Callers
// hold mu.
func (m *Map) save() error {
	b, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache %s: %w", m.path, err)
	}
	f, err := os.CreateTemp(filepath.Dir(m.path), ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("writing cache %s: %w", m.path, err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("writing cache %s: %w", m.path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("writing cache %s: %w", m.path, err)
	}
	if err := os.Rename(f.Name(), m.path); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("writing cache %s: %w", m.path, err)
	}
	return nil
}
