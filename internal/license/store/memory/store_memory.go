// Package memory provides the non-persistent development store. It favors
// clarity over performance and holds one mutex across all operations, which
// trivially satisfies the atomic conditional-update contract.
package memory

import (
	"context"
	"sync"

	"keygate/internal/license/models"
	"keygate/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	byKey   map[string]*models.License
	byToken map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byKey:   make(map[string]*models.License),
		byToken: make(map[string]string),
	}
}

func (s *InMemoryStore) Create(_ context.Context, license *models.License) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[license.Key]; exists {
		return sentinel.ErrDuplicateKey
	}
	if license.EventToken != "" {
		if _, exists := s.byToken[license.EventToken]; exists {
			return sentinel.ErrDuplicateEvent
		}
		s.byToken[license.EventToken] = license.Key
	}
	s.byKey[license.Key] = license.Clone()
	return nil
}

func (s *InMemoryStore) FindByKey(_ context.Context, key string) (*models.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.byKey[key]; ok {
		return l.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByEventToken(_ context.Context, token string) (*models.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if key, ok := s.byToken[token]; ok {
		return s.byKey[key].Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

// AddActivation appends deviceID under the store lock, so the membership and
// cap checks and the write are one atomic step.
func (s *InMemoryStore) AddActivation(_ context.Context, key, deviceID string) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.byKey[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if l.IsActivated(deviceID) {
		return l.Clone(), sentinel.ErrAlreadyBound
	}
	if l.AtCap() {
		return l.Clone(), sentinel.ErrCapExceeded
	}
	l.Activations = append(l.Activations, deviceID)
	return l.Clone(), nil
}

func (s *InMemoryStore) SetActive(_ context.Context, key string, active bool) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.byKey[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	l.Active = active
	return l.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.License, 0, len(s.byKey))
	for _, l := range s.byKey {
		out = append(out, l.Clone())
	}
	return out, nil
}
