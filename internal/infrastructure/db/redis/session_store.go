package redis

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// SessionStore keeps sessions as hashes that expire with the session.
//
// Key format:
//
//	session:<session_id>         hash {user_id, role, village_id, created_at, expires_at}
//	user_sessions:<user_id>      set of session ids, for logout-all
type SessionStore struct {
	client redis.Cmdable
}

func NewSessionStore(client redis.Cmdable) *SessionStore {
	return &SessionStore{client: client}
}

var _ ports.SessionStore = (*SessionStore)(nil)

const (
	sessionPrefix      = "session:"
	userSessionsPrefix = "user_sessions:"
)

func sessionKey(id string) string       { return sessionPrefix + id }
func userSessionsKey(uid string) string { return userSessionsPrefix + uid }

func encodeSession(s *domain.Session) map[string]any {
	return map[string]any{
		"user_id":    s.UserID,
		"role":       string(s.Role),
		"village_id": s.VillageID,
		"created_at": s.CreatedAt.Unix(),
		"expires_at": s.ExpiresAt.Unix(),
	}
}

func decodeSession(id string, h map[string]string) (*domain.Session, error) {
	created, err := strconv.ParseInt(h["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: created_at: %w", id, err)
	}
	expires, err := strconv.ParseInt(h["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: expires_at: %w", id, err)
	}
	return &domain.Session{
		ID:        id,
		UserID:    h["user_id"],
		Role:      domain.Role(h["role"]),
		VillageID: h["village_id"],
		CreatedAt: time.Unix(created, 0).UTC(),
		ExpiresAt: time.Unix(expires, 0).UTC(),
	}, nil
}

// Session writes run as scripts so the hash and the per-user set never
// disagree. Keys are derived inside the scripts, which ties the store to a
// single Redis node.
var (
	// saveScript prunes ids whose hash has expired. The set TTL only grows.
	saveScript = redis.NewScript(`
local fields = {}
for i = 4, #ARGV do fields[#fields + 1] = ARGV[i] end
redis.call('HSET', KEYS[1], unpack(fields))
redis.call('EXPIRE', KEYS[1], ARGV[2])
for _, id in ipairs(redis.call('SMEMBERS', KEYS[2])) do
  if redis.call('EXISTS', ARGV[3] .. id) == 0 then
    redis.call('SREM', KEYS[2], id)
  end
end
redis.call('SADD', KEYS[2], ARGV[1])
if redis.call('TTL', KEYS[2]) < tonumber(ARGV[2]) then
  redis.call('EXPIRE', KEYS[2], ARGV[2])
end
return 1
`)

	deleteScript = redis.NewScript(`
local uid = redis.call('HGET', KEYS[1], 'user_id')
if not uid then return 0 end
redis.call('DEL', KEYS[1])
redis.call('SREM', ARGV[1] .. uid, ARGV[2])
return 1
`)

	deleteAllScript = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
for _, id in ipairs(ids) do redis.call('DEL', ARGV[1] .. id) end
redis.call('DEL', KEYS[1])
return #ids
`)
)

var sessionFields = []string{"user_id", "role", "village_id", "created_at", "expires_at"}

func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	ttl := int64(math.Ceil(time.Until(sess.ExpiresAt).Seconds()))
	if ttl < 1 {
		ttl = 1
	}
	enc := encodeSession(sess)
	args := make([]any, 0, 3+2*len(sessionFields))
	args = append(args, sess.ID, ttl, sessionPrefix)
	for _, f := range sessionFields {
		args = append(args, f, enc[f])
	}
	keys := []string{sessionKey(sess.ID), userSessionsKey(sess.UserID)}
	if err := saveScript.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get is one HGETALL; a missing key means unknown or expired.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	h, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(h) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return decodeSession(id, h)
}

// Delete is idempotent; an unknown id is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := deleteScript.Run(ctx, s.client, []string{sessionKey(id)}, userSessionsPrefix, id).Err()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser removes every tracked session of the user and the set
// itself in one atomic step.
func (s *SessionStore) DeleteAllForUser(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := deleteAllScript.Run(ctx, s.client, []string{userSessionsKey(userID)}, sessionPrefix).Err()
	if err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}
