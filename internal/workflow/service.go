package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/hierarchy"
	"github.com/lattice-cms/lattice/internal/shared"
)

// RepositoryPort defines the state mutations the engine needs.
type RepositoryPort interface {
	// TransitionContent applies a compare-and-swap on the stored check
	// state. It reports false when the stored state no longer matches
	// from, without error.
	TransitionContent(ctx context.Context, contentID int64, from, to State, checked bool) (bool, error)
	// GetState reads the current check state.
	GetState(ctx context.Context, contentID int64) (State, error)
}

// HistoryPort records and lists applied transitions.
type HistoryPort interface {
	Record(ctx context.Context, entry HistoryEntry) error
	List(ctx context.Context, contentID int64) ([]HistoryEntry, error)
}

// ChainValidator validates the content's identity chain before any state
// decision is made.
type ChainValidator interface {
	Validate(ctx context.Context, siteID, channelID, contentID int64) (*hierarchy.Chain, error)
}

// CapabilityResolver decides capability questions at a scope.
type CapabilityResolver interface {
	Resolve(ctx context.Context, actor *shared.Actor, scope authz.Scope, capability authz.Capability) error
}

// TransitionRecorder receives applied transitions for the audit trail.
// Implemented by audit.Service. May be nil.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, actorKey string, siteID, channelID, contentID int64, action, from, to string)
}

// TransitionOption describes one outbound edge and whether the current
// actor may trigger it. Used by a UI to show or hide actions.
type TransitionOption struct {
	To      State  `json:"to"`
	Action  string `json:"action"`
	Allowed bool   `json:"allowed"`
}

// CheckState is the side-effect-free projection returned by GetCheckState.
type CheckState struct {
	State       State              `json:"state"`
	Checked     bool               `json:"checked"`
	Transitions []TransitionOption `json:"transitions"`
}

// Result reports the outcome of an applied transition.
type Result struct {
	State   State `json:"state"`
	Checked bool  `json:"checked"`
}

// Service runs the content check-state machine.
type Service struct {
	chain    ChainValidator
	resolver CapabilityResolver
	repo     RepositoryPort
	history  HistoryPort
	audit    TransitionRecorder
	machine  *Machine
	logger   *slog.Logger
}

// SetAuditRecorder attaches an audit sink for applied transitions.
func (s *Service) SetAuditRecorder(rec TransitionRecorder) { s.audit = rec }

// NewService builds a Service instance.
func NewService(chain ChainValidator, resolver CapabilityResolver, repo RepositoryPort, history HistoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		chain:    chain,
		resolver: resolver,
		repo:     repo,
		history:  history,
		machine:  NewMachine(),
		logger:   logger,
	}
}

// Apply attempts the transition of the content to target. The chain is
// validated first, then the capability, then machine legality; the write
// itself is a compare-and-swap so of two concurrent identical attempts
// exactly one succeeds and the other observes the advanced state as an
// invalid transition.
func (s *Service) Apply(ctx context.Context, actor *shared.Actor, siteID, contentID int64, target State, reason string) (*Result, error) {
	if !actor.Authenticated() {
		return nil, shared.ErrUnauthenticated
	}
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown state %q", shared.ErrInvalidTransition, target)
	}

	chain, err := s.chain.Validate(ctx, siteID, 0, contentID)
	if err != nil {
		return nil, err
	}
	content := chain.Content
	current := State(content.CheckState)

	tr, ok := s.machine.Lookup(current, target)
	if !ok {
		return nil, fmt.Errorf("%w: no edge from %s to %s", shared.ErrInvalidTransition, current, target)
	}

	scope := authz.ContentScope(siteID, content.ChannelID, contentID)
	if err := s.resolveAny(ctx, actor, scope, tr.AnyOf); err != nil {
		return nil, err
	}

	applied, err := s.repo.TransitionContent(ctx, contentID, current, target, target.Checked())
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent writer advanced the state between read and write.
		latest, stateErr := s.repo.GetState(ctx, contentID)
		if stateErr != nil {
			return nil, stateErr
		}
		return nil, fmt.Errorf("%w: content already %s", shared.ErrInvalidTransition, latest)
	}

	entry := HistoryEntry{
		SiteID:    siteID,
		ContentID: contentID,
		ActorKind: actor.Kind,
		ActorID:   actor.ID,
		Action:    tr.Action,
		FromState: current,
		ToState:   target,
		Reason:    reason,
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.logger.Error("workflow history record",
			slog.Int64("content", contentID),
			slog.String("action", tr.Action),
			slog.Any("error", err))
	}
	if s.audit != nil {
		s.audit.RecordTransition(ctx, actor.Key(), siteID, content.ChannelID, contentID,
			tr.Action, string(current), string(target))
	}

	return &Result{State: target, Checked: target.Checked()}, nil
}

// GetCheckState returns the current state of the content and, for each
// outbound transition, whether the actor may trigger it. Pure read, no
// side effects.
func (s *Service) GetCheckState(ctx context.Context, actor *shared.Actor, siteID, contentID int64) (*CheckState, error) {
	if !actor.Authenticated() {
		return nil, shared.ErrUnauthenticated
	}
	chain, err := s.chain.Validate(ctx, siteID, 0, contentID)
	if err != nil {
		return nil, err
	}
	content := chain.Content
	current := State(content.CheckState)
	scope := authz.ContentScope(siteID, content.ChannelID, contentID)

	if err := s.resolver.Resolve(ctx, actor, scope, authz.ContentView); err != nil {
		return nil, err
	}

	result := &CheckState{State: current, Checked: current.Checked()}
	for _, tr := range s.machine.Outbound(current) {
		err := s.resolveAny(ctx, actor, scope, tr.AnyOf)
		if err != nil && !errors.Is(err, shared.ErrForbidden) {
			return nil, err
		}
		result.Transitions = append(result.Transitions, TransitionOption{
			To:      tr.To,
			Action:  tr.Action,
			Allowed: err == nil,
		})
	}
	return result, nil
}

// History returns the recorded check history for the content, after the
// chain and view permission are verified.
func (s *Service) History(ctx context.Context, actor *shared.Actor, siteID, contentID int64) ([]HistoryEntry, error) {
	if !actor.Authenticated() {
		return nil, shared.ErrUnauthenticated
	}
	chain, err := s.chain.Validate(ctx, siteID, 0, contentID)
	if err != nil {
		return nil, err
	}
	scope := authz.ContentScope(siteID, chain.Content.ChannelID, contentID)
	if err := s.resolver.Resolve(ctx, actor, scope, authz.ContentView); err != nil {
		return nil, err
	}
	return s.history.List(ctx, contentID)
}

func (s *Service) resolveAny(ctx context.Context, actor *shared.Actor, scope authz.Scope, caps []authz.Capability) error {
	var denied error
	for _, c := range caps {
		err := s.resolver.Resolve(ctx, actor, scope, c)
		if err == nil {
			return nil
		}
		if !errors.Is(err, shared.ErrForbidden) {
			return err
		}
		denied = err
	}
	if denied == nil {
		denied = shared.ErrForbidden
	}
	return denied
}
