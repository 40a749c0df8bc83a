package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// IdempotencyStore remembers the first outcome of a keyed request.
// Key format: idem:<caller supplied key>
type IdempotencyStore struct {
	client redis.Cmdable
}

func NewIdempotencyStore(client redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// Remember is SET NX followed by GET when the key already existed.
func (s *IdempotencyStore) Remember(ctx context.Context, key, value string, ttl time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	k := "idem:" + key
	ok, err := s.client.SetNX(ctx, k, value, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("idempotency set: %w", err)
	}
	if ok {
		return value, nil
	}
	stored, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls
		return value, nil
	}
	if err != nil {
		return "", fmt.Errorf("idempotency get: %w", err)
	}
	return stored, nil
}
