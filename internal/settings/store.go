// Package settings holds the host's settings document: a JSON value the
// host mutates while assembling a customization and seals once the
// settings take effect. Plugins observe the document through read-only
// views; there is no change notification.
//
// Paths follow gjson syntax ("ui.theme", "packs.0.name").
package settings

import (
	"fmt"
	"os"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Store is the mutable settings document. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	doc    []byte
	sealed bool
}

// Default creates a store holding an empty document.
func Default() *Store {
	return &Store{doc: []byte("{}")}
}

// FromJSON creates a store from a JSON document.
func FromJSON(data []byte) (*Store, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidDocument
	}
	doc := make([]byte, len(data))
	copy(doc, data)
	return &Store{doc: doc}, nil
}

// FromFile creates a store from the JSON document at path.
func FromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	s, err := FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}
	return s, nil
}

// Get returns the value at the given path.
func (s *Store) Get(path string) gjson.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return gjson.GetBytes(s.doc, path)
}

// Raw returns a copy of the current document.
func (s *Store) Raw() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := make([]byte, len(s.doc))
	copy(doc, s.doc)
	return doc
}

// Set sets the value at the given path. It fails once the store is
// sealed.
func (s *Store) Set(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrSealed
	}
	doc, err := sjson.SetBytes(s.doc, path, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	s.doc = doc
	return nil
}

// SetRaw sets pre-encoded JSON at the given path. It fails once the
// store is sealed.
func (s *Store) SetRaw(path string, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrSealed
	}
	doc, err := sjson.SetRawBytes(s.doc, path, []byte(raw))
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	s.doc = doc
	return nil
}

// Delete removes the value at the given path. It fails once the store
// is sealed.
func (s *Store) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrSealed
	}
	doc, err := sjson.DeleteBytes(s.doc, path)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	s.doc = doc
	return nil
}

// Seal marks the settings as applied. Further mutation fails with
// ErrSealed. Seal is idempotent.
func (s *Store) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sealed = true
}

// Sealed reports whether the settings have been applied.
func (s *Store) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sealed
}

// View returns a read-only window onto the store. Reads through the
// view observe the document as of each call.
func (s *Store) View() View {
	return view{s: s}
}
