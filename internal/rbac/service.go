package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/shared"
)

// Invalidator drops cached permission sets after grant mutations.
// Implemented by authz.Resolver.
type Invalidator interface {
	Invalidate(ctx context.Context, actorKey string)
	InvalidateSite(ctx context.Context, siteID int64)
	InvalidateAll(ctx context.Context)
}

// Service orchestrates role and grant administration. Every mutation that
// can change an effective permission set invalidates the resolver cache:
// actor-subject changes touch one actor, role-subject changes fan out to
// every holder so the whole cache is dropped.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, invalidator Invalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (*Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("role name required: %w", shared.ErrValidationFailed)
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
}

// UpdateRole renames a role. Renaming does not change effective
// permissions, so no invalidation happens here.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("role name required: %w", shared.ErrValidationFailed)
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
}

// DeleteRole removes a role including its grants and assignments. Every
// holder loses the role's capabilities at once.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.invalidator.InvalidateAll(ctx)
	return nil
}

// ListGrants returns the grants held directly by a subject.
func (s *Service) ListGrants(ctx context.Context, subject Subject) ([]Grant, error) {
	if !subject.Kind.Valid() {
		return nil, fmt.Errorf("unknown subject kind %q: %w", subject.Kind, shared.ErrValidationFailed)
	}
	return s.repo.ListGrants(ctx, subject)
}

// Grant adds capabilities to a subject at a scope.
func (s *Service) Grant(ctx context.Context, subject Subject, siteID, channelID int64, caps []authz.Capability) error {
	if err := validateGrant(subject, siteID, channelID, caps); err != nil {
		return err
	}
	if err := s.repo.InsertGrants(ctx, subject, siteID, channelID, caps); err != nil {
		return err
	}
	s.invalidateSubject(ctx, subject)
	return nil
}

// Revoke removes capabilities from a subject at a scope. An empty
// capability list clears the whole scope.
func (s *Service) Revoke(ctx context.Context, subject Subject, siteID, channelID int64, caps []authz.Capability) error {
	if !subject.Kind.Valid() {
		return fmt.Errorf("unknown subject kind %q: %w", subject.Kind, shared.ErrValidationFailed)
	}
	if err := s.repo.DeleteGrants(ctx, subject, siteID, channelID, caps); err != nil {
		return err
	}
	s.invalidateSubject(ctx, subject)
	return nil
}

// ListAssignments returns the roles held by an actor.
func (s *Service) ListAssignments(ctx context.Context, actorKind shared.ActorKind, actorID int64) ([]Assignment, error) {
	return s.repo.ListAssignments(ctx, actorKind, actorID)
}

// AssignRole gives an actor a role, optionally limited to one site.
func (s *Service) AssignRole(ctx context.Context, a Assignment) error {
	if _, err := s.repo.GetRole(ctx, a.RoleID); err != nil {
		return err
	}
	if err := s.repo.InsertAssignment(ctx, a); err != nil {
		return err
	}
	s.invalidator.Invalidate(ctx, actorKey(a.ActorKind, a.ActorID))
	return nil
}

// RemoveRole takes a role away from an actor.
func (s *Service) RemoveRole(ctx context.Context, a Assignment) error {
	if err := s.repo.DeleteAssignment(ctx, a); err != nil {
		return err
	}
	s.invalidator.Invalidate(ctx, actorKey(a.ActorKind, a.ActorID))
	return nil
}

func (s *Service) invalidateSubject(ctx context.Context, subject Subject) {
	if subject.Kind == SubjectRole {
		s.invalidator.InvalidateAll(ctx)
		return
	}
	s.invalidator.Invalidate(ctx, subject.ActorKey())
}

func validateGrant(subject Subject, siteID, channelID int64, caps []authz.Capability) error {
	if !subject.Kind.Valid() {
		return fmt.Errorf("unknown subject kind %q: %w", subject.Kind, shared.ErrValidationFailed)
	}
	if len(caps) == 0 {
		return fmt.Errorf("at least one capability required: %w", shared.ErrValidationFailed)
	}
	if siteID < 0 || channelID < 0 {
		return fmt.Errorf("negative scope identifiers: %w", shared.ErrValidationFailed)
	}
	if siteID == 0 && channelID != 0 {
		return fmt.Errorf("channel grant requires a site: %w", shared.ErrValidationFailed)
	}
	for _, c := range caps {
		if !c.Known() {
			return fmt.Errorf("unknown capability %q: %w", c, shared.ErrValidationFailed)
		}
	}
	return nil
}

func actorKey(kind shared.ActorKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}
