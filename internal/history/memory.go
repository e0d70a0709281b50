package history

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent entries in a fixed-size ring.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a ring holding at most max entries (500 if max <= 0).
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 500
	}
	return &MemoryStore{entries: make([]Entry, max)}
}

func (s *MemoryStore) Record(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[s.next] = prepare(e)
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, connectionID string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.next
	if s.full {
		n = len(s.entries)
	}

	var out []Entry
	for i := 0; i < n; i++ {
		// walk backwards from the newest slot
		idx := (s.next - 1 - i + len(s.entries)) % len(s.entries)
		e := s.entries[idx]
		if connectionID != "" && e.ConnectionID != connectionID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Close(_ context.Context) error { return nil }
