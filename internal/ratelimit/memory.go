package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps last-sync times in process memory. Best effort: state
// resets on restart and is not shared across instances.
type MemoryStore struct {
	mu    sync.RWMutex
	times map[string]time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{times: make(map[string]time.Time)}
}

func (s *MemoryStore) LastSync(_ context.Context, companyID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.times[companyID]
	return t, ok, nil
}

func (s *MemoryStore) SetLastSync(_ context.Context, companyID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.times[companyID] = at
	return nil
}
