package connections

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	snapshot  *Snapshot
	expiresAt time.Time
}

// MemoryStore keeps snapshots in process memory. Suitable for the desktop
// shell where a single process serves one machine.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*Snapshot, error) {
	s.mu.RLock()
	entry, ok := s.entries[userID]
	s.mu.RUnlock()

	if !ok || s.now().After(entry.expiresAt) {
		return nil, ErrSnapshotNotFound
	}

	return entry.snapshot, nil
}

func (s *MemoryStore) Set(_ context.Context, snapshot *Snapshot, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[snapshot.UserID] = memoryEntry{
		snapshot:  snapshot,
		expiresAt: s.now().Add(ttl),
	}

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, userID)

	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
