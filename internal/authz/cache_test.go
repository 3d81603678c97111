package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t, time.Minute)
	ctx := context.Background()

	set := &PermissionSet{
		Site:    []Capability{ContentView},
		Channel: map[int64][]Capability{10: {ContentEdit}},
	}
	cache.Set(ctx, "user:7", 1, set)

	got, ok := cache.Get(ctx, "user:7", 1)
	require.True(t, ok)
	assert.True(t, got.HasSite(ContentView))
	assert.True(t, got.HasChannel(10, ContentEdit))
	assert.False(t, got.HasChannel(11, ContentEdit))

	_, ok = cache.Get(ctx, "user:7", 2)
	assert.False(t, ok)
}

func TestCacheInvalidateActor(t *testing.T) {
	cache := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "user:7", 1, &PermissionSet{Site: []Capability{ContentView}})
	cache.Set(ctx, "user:7", 2, &PermissionSet{Site: []Capability{ContentView}})
	cache.Set(ctx, "user:8", 1, &PermissionSet{Site: []Capability{ContentView}})

	require.NoError(t, cache.InvalidateActor(ctx, "user:7"))

	_, ok := cache.Get(ctx, "user:7", 1)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "user:7", 2)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "user:8", 1)
	assert.True(t, ok, "other actors keep their entries")
}

func TestCacheInvalidateSite(t *testing.T) {
	cache := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "user:7", 1, &PermissionSet{})
	cache.Set(ctx, "user:8", 1, &PermissionSet{})
	cache.Set(ctx, "user:8", 2, &PermissionSet{})

	require.NoError(t, cache.InvalidateSite(ctx, 1))

	_, ok := cache.Get(ctx, "user:7", 1)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "user:8", 1)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "user:8", 2)
	assert.True(t, ok, "other sites keep their entries")
}

func TestCacheDegradesToMissWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "user:7", 1, &PermissionSet{Site: []Capability{ContentView}})
	mr.Close()

	_, ok := cache.Get(ctx, "user:7", 1)
	assert.False(t, ok)
}
