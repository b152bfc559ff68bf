package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/civichub/civichub/pkg/config"
	"github.com/civichub/civichub/pkg/logging"
)

// keyNamespace prefixes every key so the service can share a Redis
// instance with other tenants.
const keyNamespace = "civichub:"

// viewKeyPrefix namespaces buffered report view counters.
const viewKeyPrefix = "report_views:"

// Cache wraps Redis client
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// New creates a new Redis cache client
func New(cfg *config.RedisConfig) (*Cache, error) {
	if !cfg.Enabled {
		logging.GetLogger().Info("Redis cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetLogger().Info("Redis connection established")

	return &Cache{
		client: client,
		ctx:    context.Background(),
	}, nil
}

// namespaceKey prefixes a key with the service namespace
func (c *Cache) namespaceKey(key string) string {
	return keyNamespace + key
}

// HashKey derives a fixed-length cache key from arbitrary parts
func HashKey(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}

// Get retrieves a value from cache
func (c *Cache) Get(key string) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrCacheDisabled
	}
	return c.client.Get(c.ctx, c.namespaceKey(key)).Result()
}

// Set sets a value in cache with TTL
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Set(c.ctx, c.namespaceKey(key), value, ttl).Err()
}

// Delete removes a key from cache
func (c *Cache) Delete(key string) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Del(c.ctx, c.namespaceKey(key)).Err()
}

// Exists checks if a key exists
func (c *Cache) Exists(key string) (bool, error) {
	if c == nil || c.client == nil {
		return false, ErrCacheDisabled
	}
	count, err := c.client.Exists(c.ctx, c.namespaceKey(key)).Result()
	return count > 0, err
}

// IncrReportView buffers one view for a report. Views are drained to
// the database by the reconciler rather than written per request.
func (c *Cache) IncrReportView(reportID string) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Incr(c.ctx, c.namespaceKey(viewKeyPrefix+reportID)).Err()
}

// DrainReportViews atomically reads and clears up to limit buffered
// view counters, keyed by report ID.
func (c *Cache) DrainReportViews(ctx context.Context, limit int64) (map[string]int64, error) {
	if c == nil || c.client == nil {
		return nil, ErrCacheDisabled
	}

	pattern := keyNamespace + viewKeyPrefix + "*"
	keys, _, err := c.client.Scan(ctx, 0, pattern, limit).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan view counters: %w", err)
	}

	views := make(map[string]int64, len(keys))
	for _, key := range keys {
		val, err := c.client.GetDel(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return views, fmt.Errorf("failed to drain view counter %s: %w", key, err)
		}
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		reportID := strings.TrimPrefix(key, keyNamespace+viewKeyPrefix)
		views[reportID] = n
	}

	return views, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Health checks Redis health
func (c *Cache) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Ping(ctx).Err()
}

var (
	// ErrCacheDisabled is returned when cache operations are attempted but cache is disabled
	ErrCacheDisabled = fmt.Errorf("cache is disabled")
)
