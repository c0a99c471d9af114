package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces capture flags in a shared Redis.
const DefaultKeyPrefix = "supportbot:capturing:"

// RedisStore keeps capture flags in Redis so several bot processes share
// them. A TTL stands in for idle eviction: an expired key reads as the
// capturing default.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps client. ttl <= 0 keeps keys forever.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) IsCapturing(ctx context.Context, userID string) (bool, error) {
	v, err := s.client.Get(ctx, s.prefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("conversation: redis get: %w", err)
	}
	if s.ttl > 0 {
		// Refresh idle expiry; failure only shortens the entry's life.
		s.client.Expire(ctx, s.prefix+userID, s.ttl)
	}
	return v == "1", nil
}

func (s *RedisStore) SetCapturing(ctx context.Context, userID string, capturing bool) error {
	v := "0"
	if capturing {
		v = "1"
	}
	if err := s.client.Set(ctx, s.prefix+userID, v, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: redis set: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("conversation: redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
