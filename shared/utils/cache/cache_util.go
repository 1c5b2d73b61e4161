package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache namespaces every key as "<namespace>:<key>".
type Cache struct {
	client redis.UniversalClient // works with both single and cluster
}

func NewCache(addrs []string, password string, useCluster bool) *Cache {
	if useCluster && len(addrs) > 1 {
		return &Cache{client: redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: password,
		})}
	}
	return &Cache{client: redis.NewClient(&redis.Options{
		Addr:     addrs[0],
		Password: password,
	})}
}

// NewFromClient wraps an existing client, mostly for tests.
func NewFromClient(client redis.UniversalClient) *Cache {
	return &Cache{client: client}
}

// Client exposes the underlying client for callers that need raw commands.
func (c *Cache) Client() redis.UniversalClient {
	return c.client
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func key(namespace, k string) string {
	return namespace + ":" + k
}

func (c *Cache) Set(ctx context.Context, namespace, k string, value interface{}, ttl time.Duration) error {
	return c.client.Set(ctx, key(namespace, k), value, ttl).Err()
}

func (c *Cache) Get(ctx context.Context, namespace, k string) (string, error) {
	return c.client.Get(ctx, key(namespace, k)).Result()
}

// GetTTL returns a negative duration when the key is missing or has no expiry.
func (c *Cache) GetTTL(ctx context.Context, namespace, k string) (time.Duration, error) {
	return c.client.TTL(ctx, key(namespace, k)).Result()
}

// IncrWithExpire bumps a counter and starts its window on the first hit.
func (c *Cache) IncrWithExpire(ctx context.Context, namespace, k string, window time.Duration) (int64, error) {
	full := key(namespace, k)

	cnt, err := c.client.Incr(ctx, full).Result()
	if err != nil {
		return 0, err
	}
	if cnt == 1 {
		_ = c.client.Expire(ctx, full, window).Err()
	}
	return cnt, nil
}
