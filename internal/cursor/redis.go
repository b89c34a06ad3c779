package cursor

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key used when none is configured
const DefaultRedisKey = "siem-client:cursor"

// RedisStore keeps the cursor under a single Redis key, so hosts sharing a
// Redis instance resume from the same position.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store on an existing client
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// NewRedisStoreWithURL creates a store from a redis:// URL
func NewRedisStoreWithURL(rawURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts), key), nil
}

// Key returns the Redis key holding the cursor
func (s *RedisStore) Key() string {
	return s.key
}

// Location implements Store
func (s *RedisStore) Location() string {
	return fmt.Sprintf("redis://%s/%s", s.client.Options().Addr, s.key)
}

// Load implements Store
func (s *RedisStore) Load(ctx context.Context) (Cursor, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("reading cursor key %s: %w", s.key, err)
	}
	return Cursor(val), nil
}

// Save implements Store
func (s *RedisStore) Save(ctx context.Context, c Cursor) error {
	if err := s.client.Set(ctx, s.key, c.String(), 0).Err(); err != nil {
		return fmt.Errorf("writing cursor key %s: %w", s.key, err)
	}
	return nil
}

// Clear implements Store
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("deleting cursor key %s: %w", s.key, err)
	}
	return nil
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
