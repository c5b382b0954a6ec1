package store

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/mockdy/internal/domain"
)

// MemoryStore is a process-local Repository. It is used in tests and when
// the server runs with DB_PATH=":memory:".
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
	records  map[string]map[string]string
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]domain.Profile),
		records:  make(map[string]map[string]string),
	}
}

// Ensure MemoryStore implements Repository.
var _ Repository = (*MemoryStore)(nil)

func (m *MemoryStore) GetProfile(_ context.Context, profileID string) (*domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[profileID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) UpsertProfile(_ context.Context, profile *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ProfileID] = *profile
	return nil
}

func (m *MemoryStore) TouchProfile(_ context.Context, profileID string, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[profileID]
	if !ok {
		return nil
	}
	p.LastSeenAt = lastSeen
	p.UpdatedAt = time.Now()
	m.profiles[profileID] = p
	return nil
}

func (m *MemoryStore) GetRecord(_ context.Context, profileID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.records[profileID][key]
	return v, ok, nil
}

func (m *MemoryStore) PutRecord(_ context.Context, profileID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[profileID]; !ok {
		m.records[profileID] = make(map[string]string)
	}
	m.records[profileID][key] = value
	return nil
}

func (m *MemoryStore) DeleteRecord(_ context.Context, profileID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records[profileID], key)
	return nil
}

func (m *MemoryStore) DeleteStaleProfiles(_ context.Context, ttl time.Duration) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var profiles, records int64
	for id, p := range m.profiles {
		if !p.IsStale(ttl, now) {
			continue
		}
		records += int64(len(m.records[id]))
		delete(m.records, id)
		delete(m.profiles, id)
		profiles++
	}
	return profiles, records, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }
