package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	reports []Record
	users   map[string]UserProfile
}

var _ ReportStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]UserProfile)}
}

func (m *MemoryStore) SaveReport(_ context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Fields = rec.Fields.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, rec)
	return nil
}

func (m *MemoryStore) UpsertUser(_ context.Context, email string, rec Record) error {
	key := NormalizeEmail(email)
	rec.Fields = rec.Fields.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[key] = profileFromRecord(key, rec)
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, email string) (*UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.users[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &profile, nil
}

func (m *MemoryStore) ListUsers(context.Context) ([]UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]UserProfile, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b UserProfile) int { return strings.Compare(a.Email, b.Email) })
	return users, nil
}

// Reports returns a copy of the saved report records in save order.
func (m *MemoryStore) Reports() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.reports)
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
