package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

type memoryEntry struct {
	data    []byte
	version int64
	expiry  time.Time
}

// MemoryStore is an in-memory Store for development and tests. Like the
// dedupe memory backend, it is rejected at startup in staging/production.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || time.Now().After(e.expiry) {
		return nil, ErrNotFound
	}
	var s Session
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, &ErrBackend{Backend: "memory", Err: err}
	}
	s.Version = e.version
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session, ttl time.Duration) error {
	if normalizeOutcomeForSave(s) {
		slog.Error("session_outcome_normalized", "session_id", s.ID, "outcome", string(*s.Outcome))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.Marshal(s)
	if err != nil {
		return &ErrBackend{Backend: "memory", Err: err}
	}
	s.Version++
	m.entries[s.ID] = memoryEntry{data: data, version: s.Version, expiry: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryStore) CompareAndSwapSave(_ context.Context, s *Session, ttl time.Duration) error {
	if normalizeOutcomeForSave(s) {
		slog.Error("session_outcome_normalized", "session_id", s.ID, "outcome", string(*s.Outcome))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[s.ID]
	if !ok || time.Now().After(e.expiry) {
		return ErrNotFound
	}
	if e.version != s.Version {
		return ErrConflict
	}

	data, err := json.Marshal(s)
	if err != nil {
		return &ErrBackend{Backend: "memory", Err: err}
	}
	s.Version++
	m.entries[s.ID] = memoryEntry{data: data, version: s.Version, expiry: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return false, nil
	}
	delete(m.entries, id)
	return true, nil
}

func (m *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || time.Now().After(e.expiry) {
		return false, nil
	}
	return true, nil
}

var _ Store = (*MemoryStore)(nil)
