package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis. Every key is stored under namespace.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedisStore wraps client. namespace is prepended to every key ("rtg:cache:").
func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache.RedisStore.Get: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.namespace+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache.RedisStore.Set: %w", err)
	}
	return nil
}

// DeletePrefix walks matching keys with SCAN rather than KEYS so a large
// keyspace does not block the server.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := escapeGlob(s.namespace+prefix) + "*"
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache.RedisStore.DeletePrefix: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache.RedisStore.DeletePrefix: scan: %w", err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("cache.RedisStore.DeletePrefix: %w", err)
		}
	}
	return nil
}

// Generation counters live under "gen:" so DeletePrefix on a resource prefix
// never removes them.
func (s *RedisStore) genKey(prefix string) string {
	return s.namespace + "gen:" + prefix
}

func (s *RedisStore) Generation(ctx context.Context, prefix string) (uint64, error) {
	v, err := s.client.Get(ctx, s.genKey(prefix)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache.RedisStore.Generation: %w", err)
	}
	gen, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cache.RedisStore.Generation: %w", err)
	}
	return gen, nil
}

// Bump uses INCR, so concurrent invalidations from several replicas each
// move the counter.
func (s *RedisStore) Bump(ctx context.Context, prefix string) error {
	if err := s.client.Incr(ctx, s.genKey(prefix)).Err(); err != nil {
		return fmt.Errorf("cache.RedisStore.Bump: %w", err)
	}
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
