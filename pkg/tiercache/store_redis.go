package tiercache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisScalarStore implements ScalarStore on Redis.
// It is designed to work with github.com/redis/go-redis/v9.
// A server-side OOM refusal (maxmemory with a noeviction policy) is mapped
// to ErrScalarCapacity so the orchestrator can run its eviction pass.
type RedisScalarStore struct {
	client *redis.Client
	prefix string

	// MaxKeys is an optional client-side quota on the number of entries.
	// When positive, a Set that would grow the store past the quota fails
	// with ErrScalarCapacity. Zero disables the check.
	MaxKeys int
}

// NewRedisScalarStore creates a new Redis-backed scalar store.
// The prefix namespaces keys to avoid conflicts with unrelated data.
// If prefix is empty, "tiercache:" is used by default.
func NewRedisScalarStore(client *redis.Client, prefix string) *RedisScalarStore {
	if prefix == "" {
		prefix = "tiercache:"
	}
	return &RedisScalarStore{
		client: client,
		prefix: prefix,
	}
}

// NewRedisScalarStoreFromURL creates a Redis scalar store from a connection
// URL. Example: "redis://localhost:6379/0".
func NewRedisScalarStoreFromURL(url string, prefix string) (*RedisScalarStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return NewRedisScalarStore(redis.NewClient(opts), prefix), nil
}

func (s *RedisScalarStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (s *RedisScalarStore) Set(ctx context.Context, key string, data []byte) error {
	fullKey := s.prefix + key

	if s.MaxKeys > 0 {
		exists, err := s.client.Exists(ctx, fullKey).Result()
		if err != nil {
			return fmt.Errorf("redis exists failed: %w", err)
		}
		if exists == 0 {
			keys, err := s.Keys(ctx)
			if err != nil {
				return err
			}
			if len(keys) >= s.MaxKeys {
				return fmt.Errorf("%w: %d keys at quota %d", ErrScalarCapacity, len(keys), s.MaxKeys)
			}
		}
	}

	if err := s.client.Set(ctx, fullKey, data, 0).Err(); err != nil {
		// "OOM command not allowed" is how Redis refuses writes at maxmemory.
		if strings.Contains(err.Error(), "OOM") {
			return fmt.Errorf("%w: %v", ErrScalarCapacity, err)
		}
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisScalarStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func (s *RedisScalarStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return keys, nil
}

func (s *RedisScalarStore) Clear(ctx context.Context) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	return s.client.Del(ctx, full...).Err()
}

// Ping checks if the Redis connection is alive.
func (s *RedisScalarStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisScalarStore) Close() error {
	return s.client.Close()
}
