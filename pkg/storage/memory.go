package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps the latest snapshot in process memory.
// It is safe for concurrent use by multiple goroutines.
type MemoryStore struct {
	mu     sync.RWMutex
	latest *Snapshot
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore creates a store that stops returning a snapshot once it is
// older than ttl. A ttl of zero or less disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: max(ttl, 0), now: time.Now}
}

// Put replaces the stored snapshot.
func (s *MemoryStore) Put(ctx context.Context, snapshot Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = &snapshot
	return nil
}

// GetLatest returns the stored snapshot, or found=false when none was put
// or it has expired.
func (s *MemoryStore) GetLatest(ctx context.Context) (Snapshot, bool, error) {
	select {
	case <-ctx.Done():
		return Snapshot{}, false, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return Snapshot{}, false, nil
	}
	if s.ttl > 0 && s.now().Sub(s.latest.GeneratedAt) > s.ttl {
		return Snapshot{}, false, nil
	}
	return *s.latest, true, nil
}
