package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	PostKeyPrefix = "post:%d"
	UserKeyPrefix = "user:%d"
)

const (
	PostTTL = 30 * time.Minute
	UserTTL = 5 * time.Minute
)

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// Cache is a read-through cache handle over a Redis client. It is constructed
// once at process start and injected into the repositories that use it. A nil
// Cache (or one built over a nil client) is valid and degrades to uncached
// fetches, so callers never branch on cache availability.
type Cache struct {
	client *redis.Client
}

// New returns a Cache over the given client. client may be nil.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Aside implements the cache-aside pattern: it fills dest from the cache when
// the key is present, otherwise runs fetch (which must populate dest) and
// stores the result under key with the given TTL. Cache write failures are
// silently ignored so a degraded cache never fails a request.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if c != nil && c.client != nil {
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			if unmarshalErr := json.Unmarshal(raw, dest); unmarshalErr == nil {
				return nil
			}
			// Corrupt entry; drop it and fall through to fetch.
			c.client.Del(ctx, key)
		}
	}

	if err := fetch(); err != nil {
		return err
	}

	if c != nil && c.client != nil {
		if raw, err := json.Marshal(dest); err == nil {
			c.client.Set(ctx, key, raw, ttl)
		}
	}
	return nil
}

// Invalidate removes the given key from the cache.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c != nil && c.client != nil {
		c.client.Del(ctx, key)
	}
}

// InvalidatePost removes a post entry from the cache.
func (c *Cache) InvalidatePost(ctx context.Context, postID uint) {
	c.Invalidate(ctx, PostKey(postID))
}
