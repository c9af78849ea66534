package blacklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures so callers can distinguish an
// outage from a clean "not blacklisted" answer.
var ErrRedisUnavailable = errors.New("blacklist redis unavailable")

// RedisStore implements Store over Redis. Entries carry a TTL slightly past
// the access-token lifetime, after which the signature check alone rejects
// the token and the entry is garbage.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore returns a blacklist keyed under prefix with the given entry
// TTL. The TTL should exceed the longest access-token lifetime.
func NewRedisStore(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "blk"
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + ":" + token
}

// Revoke blacklists the token. SetNX keeps the first entry and its expiry
// when the same token is revoked twice.
func (s *RedisStore) Revoke(ctx context.Context, token string, e Entry) error {
	if e.RevokedAt.IsZero() {
		e.RevokedAt = s.now()
	}
	value := fmt.Sprintf("%s|%s|%s|%s",
		e.Username, e.DeviceID, e.Reason, e.RevokedAt.Format(time.RFC3339))
	if err := s.redis.SetNX(ctx, s.key(token), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether the token is currently blacklisted.
func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := s.redis.Get(ctx, s.key(token)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return true, nil
}
