package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisScope stores keys in Redis under a fixed prefix. It is used as the
// persistent scope when several processes on one device (or a kiosk fleet
// sharing a local Redis) must see the same session.
type RedisScope struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisScope creates a RedisScope. ttl of 0 stores keys without expiry.
func NewRedisScope(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisScope {
	return &RedisScope{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisScope) key(k string) string {
	return s.prefix + k
}

func (s *RedisScope) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrScopeUnavailable, err)
	}
	return v, true, nil
}

func (s *RedisScope) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.key(k), v, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScopeUnavailable, err)
	}
	return nil
}

func (s *RedisScope) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrScopeUnavailable, err)
	}
	return nil
}
