package authz

import (
	"context"
	"log/slog"

	"github.com/lattice-cms/lattice/internal/hierarchy"
	"github.com/lattice-cms/lattice/internal/shared"
)

// ChainValidator validates site → channel → content identity chains.
// Implemented by hierarchy.Service.
type ChainValidator interface {
	Validate(ctx context.Context, siteID, channelID, contentID int64) (*hierarchy.Chain, error)
}

// DeniedRecorder receives denied decisions for the audit trail. May be nil.
type DeniedRecorder interface {
	RecordDenied(ctx context.Context, actor *shared.Actor, scope Scope, capability Capability, reason error)
}

// Facade is the single authorization entry point used by handlers and
// services. The step order is load-bearing: the chain is validated before
// permissions are resolved so a decision is never computed against a
// forged or mismatched scope.
type Facade struct {
	resolver *Resolver
	chain    ChainValidator
	denied   DeniedRecorder
	logger   *slog.Logger
}

// NewFacade constructs a Facade. denied may be nil.
func NewFacade(resolver *Resolver, chain ChainValidator, denied DeniedRecorder, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{resolver: resolver, chain: chain, denied: denied, logger: logger}
}

// Authorize decides whether the actor may exercise the capability at the
// scope. A nil error means allowed; otherwise the error is one of the
// shared kinds (Unauthenticated, NotFound with level, Forbidden,
// StoreUnavailable).
func (f *Facade) Authorize(ctx context.Context, actor *shared.Actor, scope Scope, capability Capability) (*hierarchy.Chain, error) {
	if !actor.Authenticated() {
		return nil, shared.ErrUnauthenticated
	}
	// Super administrators skip both the chain lookup and the store. The
	// hierarchy still applies to the operation itself, but resources they
	// address are validated by the owning service.
	if actor.SuperAdmin && scope.Global() {
		return nil, nil
	}

	var chain *hierarchy.Chain
	if !scope.Global() {
		var err error
		chain, err = f.chain.Validate(ctx, scope.SiteID, scope.ChannelID, scope.ContentID)
		if err != nil {
			return nil, err
		}
		// The content's real channel defines the decision scope when the
		// caller supplied only (site, content).
		if scope.ChannelID == 0 && chain.Content != nil {
			scope.ChannelID = chain.Content.ChannelID
		}
	}

	if err := f.resolver.Resolve(ctx, actor, scope, capability); err != nil {
		f.recordDenied(ctx, actor, scope, capability, err)
		return nil, err
	}
	return chain, nil
}

func (f *Facade) recordDenied(ctx context.Context, actor *shared.Actor, scope Scope, capability Capability, reason error) {
	if f.denied == nil {
		return
	}
	f.denied.RecordDenied(ctx, actor, scope, capability, reason)
}
