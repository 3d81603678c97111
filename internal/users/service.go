package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/lattice-cms/lattice/internal/shared"
)

// Service handles account administration. Deactivation rather than
// deletion keeps authorship references on contents intact.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListAdministrators returns every backend account.
func (s *Service) ListAdministrators(ctx context.Context) ([]Account, error) {
	return s.repo.ListAdministrators(ctx)
}

// ListSiteUsers returns one page of front-facing accounts along with
// pagination metadata.
func (s *Service) ListSiteUsers(ctx context.Context, page, perPage int) ([]Account, shared.Pagination, error) {
	total, err := s.repo.CountSiteUsers(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	meta := shared.NewPagination(page, perPage, total)
	offset := (meta.Page - 1) * meta.PerPage
	accounts, err := s.repo.ListSiteUsers(ctx, int32(meta.PerPage), int32(offset))
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return accounts, meta, nil
}

// Create adds a new principal of either kind.
func (s *Service) Create(ctx context.Context, account NewAccount) (int64, error) {
	account.Username = strings.TrimSpace(account.Username)
	if account.Username == "" {
		return 0, fmt.Errorf("username required: %w", shared.ErrValidationFailed)
	}
	if len(account.Password) < 6 {
		return 0, fmt.Errorf("password too short: %w", shared.ErrValidationFailed)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(account.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	switch account.Kind {
	case shared.ActorAdministrator:
		return s.repo.CreateAdministrator(ctx, account.Username, string(hash), strings.TrimSpace(account.RoleName))
	case shared.ActorUser:
		return s.repo.CreateSiteUser(ctx, account.Username, string(hash))
	default:
		return 0, fmt.Errorf("unknown account kind %q: %w", account.Kind, shared.ErrValidationFailed)
	}
}

// SetActive toggles whether the account can log in.
func (s *Service) SetActive(ctx context.Context, kind shared.ActorKind, id int64, active bool) error {
	return s.repo.SetActive(ctx, kind, id, active)
}

// ResetPassword replaces the account password.
func (s *Service) ResetPassword(ctx context.Context, kind shared.ActorKind, id int64, password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password too short: %w", shared.ErrValidationFailed)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.SetPassword(ctx, kind, id, string(hash))
}
