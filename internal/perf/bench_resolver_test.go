package perf

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/shared"
)

type benchStore struct {
	channels map[int64][]authz.Capability
}

func (s *benchStore) GlobalGrants(context.Context, *shared.Actor) ([]authz.Capability, error) {
	return nil, nil
}

func (s *benchStore) SiteGrants(context.Context, *shared.Actor, int64) ([]authz.Capability, error) {
	return []authz.Capability{authz.ContentView, authz.ContentAdd, authz.ContentEdit}, nil
}

func (s *benchStore) ChannelGrants(context.Context, *shared.Actor, int64) (map[int64][]authz.Capability, error) {
	return s.channels, nil
}

func benchChannels(n int64) map[int64][]authz.Capability {
	out := make(map[int64][]authz.Capability, n)
	for i := int64(1); i <= n; i++ {
		out[i] = []authz.Capability{authz.ContentView, authz.ContentCheck}
	}
	return out
}

func BenchmarkPermissionSetCold(b *testing.B) {
	store := &benchStore{channels: benchChannels(50)}
	resolver := authz.NewResolver(store, nil, nil, authz.ResolverOptions{})
	actor := &shared.Actor{Kind: shared.ActorUser, ID: 7}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := resolver.PermissionSet(ctx, actor, 1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPermissionSetCached(b *testing.B) {
	mr := miniredis.RunT(b)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := &benchStore{channels: benchChannels(50)}
	cache := authz.NewCache(client, 5*time.Minute)
	resolver := authz.NewResolver(store, cache, nil, authz.ResolverOptions{})
	actor := &shared.Actor{Kind: shared.ActorUser, ID: 7}
	ctx := context.Background()

	if _, err := resolver.PermissionSet(ctx, actor, 1); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := resolver.PermissionSet(ctx, actor, 1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResolveChannelScope(b *testing.B) {
	store := &benchStore{channels: benchChannels(200)}
	resolver := authz.NewResolver(store, nil, nil, authz.ResolverOptions{})
	actor := &shared.Actor{Kind: shared.ActorUser, ID: 7}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := resolver.Resolve(ctx, actor, authz.ChannelScope(1, 150), authz.ContentCheck); err != nil {
			b.Fatal(err)
		}
	}
}
