package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements WindowStore for single-process setups. Windows are
// fixed, not sliding, matching the Redis implementation.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count   int64
	resetAt time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w := s.windows[key]
	if w == nil || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(ttl)}
		s.windows[key] = w
	}
	w.count++
	return w.count, nil
}
