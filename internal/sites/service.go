package sites

import (
	"context"
	"fmt"
	"strings"

	"github.com/lattice-cms/lattice/internal/shared"
)

// Service handles site business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all sites ordered by taxis.
func (s *Service) List(ctx context.Context) ([]Site, error) {
	return s.repo.List(ctx)
}

// Get fetches one site.
func (s *Service) Get(ctx context.Context, id int64) (*Site, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new site root.
func (s *Service) Create(ctx context.Context, site *Site) (*Site, error) {
	if err := normalize(site); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, site)
}

// Update modifies an existing site.
func (s *Service) Update(ctx context.Context, site *Site) (*Site, error) {
	if site.ID <= 0 {
		return nil, fmt.Errorf("site id required: %w", shared.ErrValidationFailed)
	}
	if err := normalize(site); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, site)
}

// Delete removes a site.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// GetSettings returns the site settings, with defaults for unset sites.
func (s *Service) GetSettings(ctx context.Context, siteID int64) (*Settings, error) {
	if _, err := s.repo.Get(ctx, siteID); err != nil {
		return nil, err
	}
	return s.repo.GetSettings(ctx, siteID)
}

// UpdateSettings writes the site settings.
func (s *Service) UpdateSettings(ctx context.Context, settings *Settings) error {
	if _, err := s.repo.Get(ctx, settings.SiteID); err != nil {
		return err
	}
	if settings.PageSize <= 0 {
		settings.PageSize = 30
	}
	if settings.ChannelSeparator == "" {
		settings.ChannelSeparator = " > "
	}
	return s.repo.UpdateSettings(ctx, settings)
}

func normalize(site *Site) error {
	site.Name = strings.TrimSpace(site.Name)
	site.Dir = strings.ToLower(strings.TrimSpace(site.Dir))
	if site.Name == "" {
		return fmt.Errorf("site name required: %w", shared.ErrValidationFailed)
	}
	if site.Dir == "" || strings.ContainsAny(site.Dir, "/\\ ") {
		return fmt.Errorf("site dir must be a bare directory name: %w", shared.ErrValidationFailed)
	}
	return nil
}
