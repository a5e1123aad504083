package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every redis key written by the planner
const DefaultKeyPrefix = "trailplanner:"

// RedisCache stores cache entries in redis so several server instances share
// one snapshot. Keys expire once entries become very stale.
type RedisCache struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ Backend = (*RedisCache)(nil)

// NewRedisCache connects to redis at addr
func NewRedisCache(addr, password string) *RedisCache {
	return NewRedisCacheWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	}))
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: DefaultKeyPrefix,
		now:    time.Now,
	}
}

// Ping checks connectivity
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

// Close releases the client's connections
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Set stores data in redis with TTL based on refresh interval
func (r *RedisCache) Set(ctx context.Context, key string, data interface{}, refreshInterval time.Duration, source string) error {
	entry, err := newEntry(key, data, refreshInterval, source, r.now())
	if err != nil {
		return err
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := r.client.Set(ctx, r.prefix+key, payload, 2*refreshInterval).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Get retrieves data from redis if not stale
func (r *RedisCache) Get(ctx context.Context, key string, result interface{}) (bool, error) {
	entry, err := r.load(ctx, key)
	if err != nil || entry == nil {
		return false, err
	}
	if entry.IsStale(r.now()) {
		return false, nil
	}
	if err := entry.decode(result); err != nil {
		return false, err
	}
	return true, nil
}

// GetWithMetadata retrieves data and cache metadata
func (r *RedisCache) GetWithMetadata(ctx context.Context, key string, result interface{}) (*CacheEntry, bool, error) {
	entry, err := r.load(ctx, key)
	if err != nil || entry == nil {
		return nil, false, err
	}
	if err := entry.decode(result); err != nil {
		return entry, true, err
	}
	return entry, true, nil
}

// Delete removes an entry from redis
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) load(ctx context.Context, key string) (*CacheEntry, error) {
	payload, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry %s: %w", key, err)
	}
	return &entry, nil
}
