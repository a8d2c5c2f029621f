// Package idempotency guards one-time side effects against the processor's
// at-least-once webhook delivery.
package idempotency

import (
	"context"
	"sync"
)

// Store records processed webhook event ids. Event dispatch itself is pure;
// only the side effects attached downstream (event publication, fulfillment
// notification) consult the store.
type Store interface {
	// MarkProcessed records eventID and reports whether this was the first
	// time it was seen.
	MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error)
}

// MemoryStore keeps seen event ids in process memory. Good enough for tests
// and single-instance deployments without a database; restarts forget.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

func (s *MemoryStore) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return false, nil
	}
	s.seen[eventID] = struct{}{}
	return true, nil
}
