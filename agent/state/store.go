package state

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrStateNotFound   = errors.New("session state not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrNilSessionState = errors.New("session state is nil")
)

// Store is the session persistence contract used by the dispatcher runtime.
// Get must be idempotent: repeated calls for the same key return identical
// state until a Save mutates it.
type Store interface {
	Get(ctx context.Context, key Key) (*Session, error)
	Create(ctx context.Context, key Key, initial map[string]any) (*Session, error)
	Save(ctx context.Context, st *Session) error
	Delete(ctx context.Context, key Key) error
}

const defaultMemoryTTL = 24 * time.Hour

// MemoryStore keeps sessions in process memory with per-entry TTL eviction.
// Expired entries are dropped lazily on access and wholesale on Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

type MemoryOption func(*MemoryStore)

func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithNowFunc(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[Key]*memoryEntry),
		ttl:     defaultMemoryTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, key Key) (*Session, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}

	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; another goroutine may have refreshed it.
		if cur, still := s.entries[key]; still && s.now().After(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, ErrStateNotFound
	}

	return entry.session.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, key Key, initial map[string]any) (*Session, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	session := NewSession(key, initial, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[key]; ok && now.Before(entry.expiresAt) {
		return nil, ErrSessionExists
	}
	s.entries[key] = &memoryEntry{
		session:   session.Clone(),
		expiresAt: now.Add(s.ttl),
	}
	return session, nil
}

func (s *MemoryStore) Save(ctx context.Context, st *Session) error {
	if st == nil {
		return ErrNilSessionState
	}
	key := st.Key()
	if err := key.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &memoryEntry{
		session:   st.Clone(),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sweep removes every expired entry and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			dropped++
		}
	}
	return dropped
}

// Len reports live (non-expired) entries.
func (s *MemoryStore) Len() int {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, entry := range s.entries {
		if now.Before(entry.expiresAt) {
			n++
		}
	}
	return n
}
