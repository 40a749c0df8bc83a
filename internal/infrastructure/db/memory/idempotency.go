package memory

import (
	"context"
	"sync"
	"time"

	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

type idemEntry struct {
	value     string
	expiresAt time.Time
}

// IdempotencyStore implements ports.IdempotencyStore.
type IdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]idemEntry
	now  func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{keys: make(map[string]idemEntry), now: time.Now}
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

func (s *IdempotencyStore) Remember(_ context.Context, key, value string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.keys[key]; ok && now.Before(e.expiresAt) {
		return e.value, nil
	}
	s.keys[key] = idemEntry{value: value, expiresAt: now.Add(ttl)}
	return value, nil
}
