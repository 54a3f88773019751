// Package prefs provides the string key-value preference store backing the
// two persisted settings: the target BPM and the accuracy-visibility flag.
package prefs

import (
	"context"
	"strconv"
	"sync"
)

// Preference keys.
const (
	KeyTargetBPM    = "targetBPM"
	KeyShowAccuracy = "showAccuracy"
)

// Store is the key-value preference capability. Values are strings; typed
// helpers below handle encoding. Absent or malformed values leave the
// caller's defaults in place, never an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// Clear empties the whole store. Reset clears everything, matching the
	// original single-session semantics.
	Clear(ctx context.Context) error

	Close() error
}

// TargetBPM reads the persisted target BPM. Missing, malformed, or sub-1
// values report absent.
func TargetBPM(ctx context.Context, s Store) (int, bool) {
	raw, ok, err := s.Get(ctx, KeyTargetBPM)
	if err != nil || !ok {
		return 0, false
	}
	bpm, err := strconv.Atoi(raw)
	if err != nil || bpm < 1 {
		return 0, false
	}
	return bpm, true
}

// SetTargetBPM persists the target BPM.
func SetTargetBPM(ctx context.Context, s Store, bpm int) error {
	return s.Set(ctx, KeyTargetBPM, strconv.Itoa(bpm))
}

// ShowAccuracy reads the accuracy-visibility flag. Missing or malformed
// values report false (accuracy hidden by default).
func ShowAccuracy(ctx context.Context, s Store) bool {
	raw, ok, err := s.Get(ctx, KeyShowAccuracy)
	if err != nil || !ok {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}

// SetShowAccuracy persists the accuracy-visibility flag.
func SetShowAccuracy(ctx context.Context, s Store, show bool) error {
	return s.Set(ctx, KeyShowAccuracy, strconv.FormatBool(show))
}

// MemoryStore is an in-memory Store for tests and daemonless CLI sessions
// without a configured database path.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
