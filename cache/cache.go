// Package cache provides the query and ingestion caches over one Redis
// backend. An unreachable backend at startup disables the cache for the
// life of the process; disabled caches miss on every get and drop every
// put.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aqua777/codelens/schema"
)

// Cache wraps the Redis client shared by both namespaces.
type Cache struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
	log     *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for the degradation notice.
func WithLogger(log *zap.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithTTL overrides the query-cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// New connects to Redis at addr and pings once. A failed ping disables
// the cache permanently; that is logged once and never retried.
func New(ctx context.Context, addr string, opts ...Option) *Cache {
	c := &Cache{
		ttl: time.Hour,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client = redis.NewClient(&redis.Options{Addr: addr})
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.log.Warn("cache backend unreachable, running without cache",
			zap.String("addr", addr), zap.Error(err))
		c.enabled = false
		return c
	}
	c.enabled = true
	return c
}

// Disabled creates a cache that never hits, for configurations with
// caching turned off.
func Disabled() *Cache {
	return &Cache{enabled: false, log: zap.NewNop()}
}

// Enabled reports whether the backend is in use.
func (c *Cache) Enabled() bool { return c.enabled }

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// queryKey builds the fingerprint key for one (query, limit, collection).
func queryKey(query string, limit int, collection string) string {
	return "q:" + schema.QueryFingerprint(query, limit, collection)
}

// GetQuery returns the cached value for the query, or miss.
func (c *Cache) GetQuery(ctx context.Context, query string, limit int, collection string) (string, bool) {
	if !c.enabled {
		return "", false
	}
	val, err := c.client.Get(ctx, queryKey(query, limit, collection)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("query cache get failed", zap.Error(err))
		}
		return "", false
	}
	return val, true
}

// PutQuery stores the value under the query fingerprint with the
// configured TTL; returns false when nothing was stored.
func (c *Cache) PutQuery(ctx context.Context, query string, limit int, collection, value string) bool {
	if !c.enabled {
		return false
	}
	if err := c.client.Set(ctx, queryKey(query, limit, collection), value, c.ttl).Err(); err != nil {
		c.log.Debug("query cache put failed", zap.Error(err))
		return false
	}
	return true
}

// DeleteQuery drops one cached query result.
func (c *Cache) DeleteQuery(ctx context.Context, query string, limit int, collection string) {
	if !c.enabled {
		return
	}
	if err := c.client.Del(ctx, queryKey(query, limit, collection)).Err(); err != nil {
		c.log.Debug("query cache delete failed", zap.Error(err))
	}
}

// Ingestion returns the ingestion cache namespace for a collection.
func (c *Cache) Ingestion(collection string) *IngestionCache {
	return &IngestionCache{cache: c, collection: collection}
}

// ClearNamespace removes all keys under one collection namespace; used
// when a collection is deleted.
func (c *Cache) ClearNamespace(ctx context.Context, collection string) error {
	if !c.enabled {
		return nil
	}
	pattern := fmt.Sprintf("ing:%s:*", collection)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return &schema.BackendError{Backend: "cache", Err: err}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return &schema.BackendError{Backend: "cache", Err: err}
	}
	return nil
}

// IngestionCache caches node hashes per collection so refresh can skip
// unchanged chunks.
type IngestionCache struct {
	cache      *Cache
	collection string
}

func (ic *IngestionCache) key(nodeID string) string {
	return fmt.Sprintf("ing:%s:%s", ic.collection, nodeID)
}

// GetHash returns the cached content hash for a node id, or miss.
func (ic *IngestionCache) GetHash(ctx context.Context, nodeID string) (string, bool) {
	if !ic.cache.enabled {
		return "", false
	}
	val, err := ic.cache.client.Get(ctx, ic.key(nodeID)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// PutHash records a node's content hash. Ingestion entries do not expire;
// they are dropped with the collection.
func (ic *IngestionCache) PutHash(ctx context.Context, nodeID, hash string) bool {
	if !ic.cache.enabled {
		return false
	}
	return ic.cache.client.Set(ctx, ic.key(nodeID), hash, 0).Err() == nil
}
