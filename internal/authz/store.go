package authz

import (
	"context"

	"github.com/lattice-cms/lattice/internal/shared"
)

// Store is the declarative grant source consumed by the Resolver. It holds
// data only; precedence policy lives in the Resolver. Implementations must
// union grants reaching the actor directly and through role assignments.
type Store interface {
	// GlobalGrants returns capabilities granted to the actor at global
	// scope.
	GlobalGrants(ctx context.Context, actor *shared.Actor) ([]Capability, error)
	// SiteGrants returns capabilities granted to the actor at the scope of
	// one site.
	SiteGrants(ctx context.Context, actor *shared.Actor, siteID int64) ([]Capability, error)
	// ChannelGrants returns the per-channel override rows for the actor
	// within one site, keyed by channel ID.
	ChannelGrants(ctx context.Context, actor *shared.Actor, siteID int64) (map[int64][]Capability, error)
}
