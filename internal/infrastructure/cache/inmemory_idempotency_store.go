package cache

import (
	"context"
	"sync"
	"time"

	"github.com/stockbooks/backend/internal/domain/shared"
)

const cleanupInterval = 5 * time.Minute

// InMemoryIdempotencyStore tracks processed event IDs in a map. Good enough
// for single-instance deployments and tests; multi-instance setups need the
// redis store so all instances share the dedupe window.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	deadlines map[string]time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

// NewInMemoryIdempotencyStore creates the store and starts its expiry sweep
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		deadlines: make(map[string]time.Time),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.sweep()
	return s
}

// MarkProcessed records an event ID for the given TTL. Returns false when
// the ID is already recorded and still live.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deadline, ok := s.deadlines[eventID]; ok && time.Now().Before(deadline) {
		return false, nil
	}
	s.deadlines[eventID] = time.Now().Add(ttl)
	return true, nil
}

// IsProcessed reports whether an event ID is recorded and not yet expired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deadline, ok := s.deadlines[eventID]
	return ok && time.Now().Before(deadline), nil
}

// Close stops the expiry sweep. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}

// Size returns the number of recorded IDs, expired ones included until the
// next sweep
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deadlines)
}

func (s *InMemoryIdempotencyStore) sweep() {
	defer close(s.done)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.dropExpired()
		}
	}
}

func (s *InMemoryIdempotencyStore) dropExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, deadline := range s.deadlines {
		if now.After(deadline) {
			delete(s.deadlines, id)
		}
	}
}
