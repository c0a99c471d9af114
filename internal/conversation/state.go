// Package conversation tracks, per user, whether the next free-text message
// should be captured as a new ticket.
package conversation

import (
	"context"
	"sync"
	"time"
)

// Store holds the per-user capture flag.
//
// A user the store has never seen, or whose entry was evicted, is reported
// as capturing: the first message anyone sends becomes a ticket.
type Store interface {
	IsCapturing(ctx context.Context, userID string) (bool, error)
	SetCapturing(ctx context.Context, userID string, capturing bool) error
}

type entry struct {
	capturing bool
	touched   time.Time
}

// MemoryStore is a process-local Store. State is lost on restart, which
// degrades every user to the capturing default.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) IsCapturing(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return true, nil
	}
	e.touched = s.now()
	s.entries[userID] = e
	return e.capturing, nil
}

func (s *MemoryStore) SetCapturing(_ context.Context, userID string, capturing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = entry{capturing: capturing, touched: s.now()}
	return nil
}

// Evict drops entries untouched for longer than idle and returns how many
// were removed.
func (s *MemoryStore) Evict(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	n := 0
	for id, e := range s.entries {
		if e.touched.Before(cutoff) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked users.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
