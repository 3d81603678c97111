package authz

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/lattice-cms/lattice/internal/shared"
)

// ResolverOptions tune precedence policy.
type ResolverOptions struct {
	// ChannelGrantsStandalone makes channel-level grants sufficient on
	// their own. When false (the default) a site-level base grant is a
	// prerequisite gate and channel overrides only widen within it.
	ChannelGrantsStandalone bool
}

// Resolver computes allow/deny decisions by combining the global, site and
// channel grant layers. Results are memoized per (actor, site) in the
// attached Cache; concurrent loads for the same pair are collapsed.
type Resolver struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
	opts   ResolverOptions
	group  singleflight.Group
}

// NewResolver constructs a Resolver. cache may be nil to disable
// memoization.
func NewResolver(store Store, cache *Cache, logger *slog.Logger, opts ResolverOptions) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, cache: cache, logger: logger, opts: opts}
}

// Resolve decides whether the actor holds the capability at the scope. A
// nil error means allowed; otherwise the error is one of the shared kinds.
// Unauthenticated callers are rejected before any store lookup, and super
// administrators are allowed without one.
func (r *Resolver) Resolve(ctx context.Context, actor *shared.Actor, scope Scope, capability Capability) error {
	if !actor.Authenticated() {
		return shared.ErrUnauthenticated
	}
	if actor.SuperAdmin {
		return nil
	}

	set, err := r.PermissionSet(ctx, actor, scope.SiteID)
	if err != nil {
		return err
	}

	switch {
	case scope.Global():
		if set.HasGlobal(capability) {
			return nil
		}
	case scope.ChannelID != 0:
		if set.HasSite(capability) {
			return nil
		}
		if !r.opts.ChannelGrantsStandalone && !set.SiteBase() {
			break
		}
		if set.HasChannel(scope.ChannelID, capability) {
			return nil
		}
	default:
		if set.HasSite(capability) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s lacks %q", shared.ErrForbidden, actor.Kind, actor.Username, capability)
}

// PermissionSet returns the memoized grant union for (actor, site).
// Calling it twice without an intervening grant mutation returns identical
// results.
func (r *Resolver) PermissionSet(ctx context.Context, actor *shared.Actor, siteID int64) (*PermissionSet, error) {
	key := fmt.Sprintf("%s:%d", actor.Key(), siteID)
	if set, ok := r.cache.Get(ctx, actor.Key(), siteID); ok {
		return set, nil
	}

	ch := r.group.DoChan(key, func() (any, error) {
		set, err := r.load(ctx, actor, siteID)
		if err != nil {
			return nil, err
		}
		r.cache.Set(ctx, actor.Key(), siteID, set)
		return set, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*PermissionSet), nil
	}
}

// Invalidate drops memoized results for one actor.
func (r *Resolver) Invalidate(ctx context.Context, actorKey string) {
	if err := r.cache.InvalidateActor(ctx, actorKey); err != nil {
		r.logger.Warn("authz invalidate actor", slog.String("actor", actorKey), slog.Any("error", err))
	}
}

// InvalidateSite drops memoized results for one site across all actors.
func (r *Resolver) InvalidateSite(ctx context.Context, siteID int64) {
	if err := r.cache.InvalidateSite(ctx, siteID); err != nil {
		r.logger.Warn("authz invalidate site", slog.Int64("site", siteID), slog.Any("error", err))
	}
}

// InvalidateAll drops every memoized result.
func (r *Resolver) InvalidateAll(ctx context.Context) {
	if err := r.cache.InvalidateAll(ctx); err != nil {
		r.logger.Warn("authz invalidate all", slog.Any("error", err))
	}
}

func (r *Resolver) load(ctx context.Context, actor *shared.Actor, siteID int64) (*PermissionSet, error) {
	set := &PermissionSet{}
	var err error
	if set.Global, err = r.store.GlobalGrants(ctx, actor); err != nil {
		return nil, err
	}
	if siteID == 0 {
		return set, nil
	}
	if set.Site, err = r.store.SiteGrants(ctx, actor, siteID); err != nil {
		return nil, err
	}
	if set.Channel, err = r.store.ChannelGrants(ctx, actor, siteID); err != nil {
		return nil, err
	}
	return set, nil
}
