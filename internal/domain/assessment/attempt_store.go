package assessment

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type attemptEntry struct {
	mu sync.Mutex
	a  *Attempt
}

// AttemptStore holds in-flight attempts in memory. Each attempt has its
// own lock so a slow submission does not block other attempts.
type AttemptStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*attemptEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewAttemptStore creates a store whose attempts expire ttl after their
// last change.
func NewAttemptStore(ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		entries: make(map[uuid.UUID]*attemptEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *AttemptStore) Put(a *Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[a.ID] = &attemptEntry{a: a}
}

func (s *AttemptStore) entry(id uuid.UUID) (*attemptEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

// Get returns a copy of the attempt.
func (s *AttemptStore) Get(id uuid.UUID) (*Attempt, bool) {
	e, ok := s.entry(id)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.a.clone(), true
}

// Update runs fn with exclusive access to the attempt and stamps
// UpdatedAt afterwards, whether or not fn failed.
func (s *AttemptStore) Update(id uuid.UUID, fn func(a *Attempt) error) (*Attempt, error) {
	e, ok := s.entry(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	err := fn(e.a)
	e.a.UpdatedAt = s.now()
	return e.a.clone(), err
}

// EvictStale drops attempts untouched for longer than the TTL. Attempts
// that are being updated right now are left alone.
func (s *AttemptStore) EvictStale() int {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.a.UpdatedAt.Before(cutoff) {
			delete(s.entries, id)
			n++
		}
		e.mu.Unlock()
	}
	return n
}

func (s *AttemptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
