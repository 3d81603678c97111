package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lattice-cms/lattice/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates username/password credentials. Administrator
// accounts are tried first, then site users, so the two namespaces share
// one login form.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*shared.Actor, error) {
	admin, err := s.repo.FindAdministratorByUsername(ctx, username)
	switch {
	case err == nil:
		if !admin.IsActive {
			return nil, shared.ErrInvalidCredentials
		}
		if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
			return nil, shared.ErrInvalidCredentials
		}
		if err := s.repo.TouchAdministratorLogin(ctx, admin.ID, time.Now()); err != nil {
			return nil, err
		}
		return admin.Actor(), nil
	case errors.Is(err, shared.ErrNotFound):
		// fall through to the site user namespace
	default:
		return nil, err
	}

	user, err := s.repo.FindSiteUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user.Actor(), nil
}

// ResolveActor loads the actor identity referenced by a session. Inactive
// or deleted accounts resolve to nothing so stale sessions lose access.
func (s *Service) ResolveActor(ctx context.Context, kind shared.ActorKind, id int64) (*shared.Actor, error) {
	switch kind {
	case shared.ActorAdministrator:
		admin, err := s.repo.FindAdministratorByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !admin.IsActive {
			return nil, shared.ErrNotFound
		}
		return admin.Actor(), nil
	case shared.ActorUser:
		user, err := s.repo.FindSiteUserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !user.IsActive {
			return nil, shared.ErrNotFound
		}
		return user.Actor(), nil
	default:
		return nil, shared.ErrNotFound
	}
}

// RegisterSession persists session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, actor *shared.Actor, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, actor.Kind, actor.ID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
