package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Rana718/datagen/internal/types"
	"github.com/google/uuid"
)

// Session tracks the tables one user generated. It replaces any global
// "tables so far" state: callers create one per user session, pass it to
// validation and resolution, and drop it when the session ends.
type Session struct {
	ID string

	mu        sync.RWMutex
	names     map[string]bool
	snapshots map[string]*types.Table
}

func New() *Session {
	return WithID(uuid.NewString())
}

func WithID(id string) *Session {
	return &Session{
		ID:        id,
		names:     make(map[string]bool),
		snapshots: make(map[string]*types.Table),
	}
}

// Record notes a generated table and keeps its rows as an in-process
// snapshot for reference resolution.
func (s *Session) Record(t *types.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[t.Name] = true
	s.snapshots[t.Name] = t
}

// Mark notes a table name without a snapshot, as restored from a shared store.
func (s *Session) Mark(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[name] = true
}

func (s *Session) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names[name]
}

// Snapshot returns the rows recorded for a table in this process, if any.
func (s *Session) Snapshot(name string) (*types.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.snapshots[name]
	return t, ok
}

// Tables returns the recorded table names, sorted.
func (s *Session) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.names))
	for name := range s.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Session) Forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.names, name)
	delete(s.snapshots, name)
}

// Store keeps sessions between requests. Get returns an empty, unsaved
// session when the id is unknown; only Save makes a session last.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process. Sessions not used for ttl are
// dropped; a ttl of zero keeps them until deleted.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	session *Session
	used    time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.sessions[id]
	if !ok || m.expired(entry, now) {
		delete(m.sessions, id)
		return WithID(id), nil
	}
	entry.used = now
	return entry.session, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	m.sessions[s.ID] = &memoryEntry{session: s, used: now}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports how many live sessions are held.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep(m.now())
	return len(m.sessions)
}

func (m *MemoryStore) expired(e *memoryEntry, now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.used) >= m.ttl
}

func (m *MemoryStore) sweep(now time.Time) {
	for id, e := range m.sessions {
		if m.expired(e, now) {
			delete(m.sessions, id)
		}
	}
}
