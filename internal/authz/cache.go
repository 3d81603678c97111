package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "authz:grants:"

// Cache memoizes resolved permission sets per (actor, site) in Redis. A
// TTL bounds staleness under grant edits made by another process; local
// mutations invalidate explicitly through the Invalidate methods. Cache
// read failures degrade to misses, they never fail a resolution.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache. A non-positive ttl falls back to one minute.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached permission set for (actorKey, siteID), if any.
func (c *Cache) Get(ctx context.Context, actorKey string, siteID int64) (*PermissionSet, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.key(actorKey, siteID)).Bytes()
	if err != nil {
		return nil, false
	}
	var set PermissionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, false
	}
	return &set, true
}

// Set stores the permission set for (actorKey, siteID).
func (c *Cache) Set(ctx context.Context, actorKey string, siteID int64, set *PermissionSet) {
	if c == nil || c.client == nil || set == nil {
		return
	}
	data, err := json.Marshal(set)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(actorKey, siteID), data, c.ttl).Err()
}

// InvalidateActor drops every cached set belonging to one actor.
func (c *Cache) InvalidateActor(ctx context.Context, actorKey string) error {
	return c.drop(ctx, cacheKeyPrefix+actorKey+":*")
}

// InvalidateSite drops every cached set scoped to one site, across actors.
func (c *Cache) InvalidateSite(ctx context.Context, siteID int64) error {
	return c.drop(ctx, fmt.Sprintf("%s*:%d", cacheKeyPrefix, siteID))
}

// InvalidateAll drops the whole cache. Used when a role definition changes,
// since role grants can reach any number of actors.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	return c.drop(ctx, cacheKeyPrefix+"*")
}

func (c *Cache) drop(ctx context.Context, pattern string) error {
	if c == nil || c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("authz: cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("authz: cache del: %w", err)
	}
	return nil
}

func (c *Cache) key(actorKey string, siteID int64) string {
	return fmt.Sprintf("%s%s:%d", cacheKeyPrefix, actorKey, siteID)
}
