package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dpup/trailplanner/server/internal/logging"
)

// Backend is implemented by the in-memory and redis caches. Entries are JSON
// encoded so both behave identically for callers.
type Backend interface {
	// Set stores data, fresh for refreshInterval
	Set(ctx context.Context, key string, data interface{}, refreshInterval time.Duration, source string) error

	// Get decodes a fresh entry into result and reports whether one was found
	Get(ctx context.Context, key string, result interface{}) (bool, error)

	// GetWithMetadata decodes the entry even when stale; callers decide what to
	// do with old data. A nil result only fetches metadata.
	GetWithMetadata(ctx context.Context, key string, result interface{}) (*CacheEntry, bool, error)

	Delete(ctx context.Context, key string) error
}

// CacheEntry represents a cached item with metadata
type CacheEntry struct {
	Key             string        `json:"key"`
	Data            []byte        `json:"data"`
	CreatedAt       time.Time     `json:"created_at"`
	ExpiresAt       time.Time     `json:"expires_at"`
	RefreshInterval time.Duration `json:"refresh_interval"`
	Source          string        `json:"source"`
}

func newEntry(key string, data interface{}, refreshInterval time.Duration, source string, now time.Time) (*CacheEntry, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data for cache: %w", err)
	}
	return &CacheEntry{
		Key:             key,
		Data:            jsonData,
		CreatedAt:       now,
		ExpiresAt:       now.Add(refreshInterval),
		RefreshInterval: refreshInterval,
		Source:          source,
	}, nil
}

// IsStale reports whether the entry is past its expiration
func (e *CacheEntry) IsStale(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// IsVeryStale reports whether the entry is older than twice its refresh interval
func (e *CacheEntry) IsVeryStale(now time.Time) bool {
	return now.After(e.CreatedAt.Add(e.RefreshInterval * 2))
}

// Age returns how long ago the entry was written
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

func (e *CacheEntry) decode(result interface{}) error {
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(e.Data, result); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return nil
}

// Cache provides thread-safe in-memory caching with TTL
type Cache struct {
	entries map[string]*CacheEntry
	mutex   sync.RWMutex
	now     func() time.Time
}

var _ Backend = (*Cache)(nil)

// NewCache creates a new in-memory cache
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*CacheEntry),
		now:     time.Now,
	}
}

// Set stores data in cache with TTL based on refresh interval
func (c *Cache) Set(ctx context.Context, key string, data interface{}, refreshInterval time.Duration, source string) error {
	entry, err := newEntry(key, data, refreshInterval, source, c.now())
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = entry
	return nil
}

// Get retrieves data from cache if not stale
func (c *Cache) Get(ctx context.Context, key string, result interface{}) (bool, error) {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists || entry.IsStale(c.now()) {
		return false, nil
	}
	if err := entry.decode(result); err != nil {
		return false, err
	}
	return true, nil
}

// GetWithMetadata retrieves data and cache metadata
func (c *Cache) GetWithMetadata(ctx context.Context, key string, result interface{}) (*CacheEntry, bool, error) {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, false, nil
	}
	if err := entry.decode(result); err != nil {
		return entry, true, err
	}
	return entry, true, nil
}

// IsStale checks if cache entry is stale (past expiration)
func (c *Cache) IsStale(key string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return true
	}
	return entry.IsStale(c.now())
}

// IsVeryStale checks if cache entry is very stale (2x refresh interval)
func (c *Cache) IsVeryStale(key string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return true
	}
	return entry.IsVeryStale(c.now())
}

// Delete removes an entry from cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
	return nil
}

// Clear removes all entries from cache
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string]*CacheEntry)
}

// Keys returns all cache keys
func (c *Cache) Keys() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	stats := CacheStats{
		TotalEntries: len(c.entries),
	}

	for _, entry := range c.entries {
		if entry.IsStale(now) {
			stats.StaleEntries++
		} else {
			stats.FreshEntries++
		}

		if stats.OldestEntry.IsZero() || entry.CreatedAt.Before(stats.OldestEntry) {
			stats.OldestEntry = entry.CreatedAt
		}
		if entry.CreatedAt.After(stats.NewestEntry) {
			stats.NewestEntry = entry.CreatedAt
		}
	}

	return stats
}

// CleanupStale removes entries that are too old to be served even as stale data
func (c *Cache) CleanupStale() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	var removed int
	for key, entry := range c.entries {
		if entry.IsVeryStale(now) {
			delete(c.entries, key)
			removed++
		}
	}

	return removed
}

// StartPeriodicCleanup starts a goroutine that periodically cleans up very stale
// entries until ctx is done
func (c *Cache) StartPeriodicCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Errorw(ctx, "Cache cleanup: recovered from panic",
					"error", r, "error.stack_trace", string(debug.Stack()))
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.CleanupStale(); removed > 0 {
					logging.Debugw(ctx, "Cache cleanup removed entries", "removed", removed)
				}
			}
		}
	}()
}

// CacheStats provides cache usage statistics
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	OldestEntry  time.Time
	NewestEntry  time.Time
}
