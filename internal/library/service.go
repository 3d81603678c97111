package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/shared"
)

// Service handles media library logic. Both libraries are site-scoped:
// the file library sits behind LibraryFile, the image library behind
// LibraryImage.
type Service struct {
	repo   RepositoryPort
	facade *authz.Facade
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, facade *authz.Facade) *Service {
	return &Service{repo: repo, facade: facade}
}

func capabilityFor(kind Kind) authz.Capability {
	if kind == KindImage {
		return authz.LibraryImage
	}
	return authz.LibraryFile
}

func (s *Service) authorize(ctx context.Context, actor *shared.Actor, siteID int64, kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown library kind %q: %w", kind, shared.ErrValidationFailed)
	}
	_, err := s.facade.Authorize(ctx, actor, authz.SiteScope(siteID), capabilityFor(kind))
	return err
}

// ListGroups returns the groups of a library.
func (s *Service) ListGroups(ctx context.Context, actor *shared.Actor, siteID int64, kind Kind) ([]Group, error) {
	if err := s.authorize(ctx, actor, siteID, kind); err != nil {
		return nil, err
	}
	return s.repo.ListGroups(ctx, siteID, kind)
}

// CreateGroup adds a browsing group.
func (s *Service) CreateGroup(ctx context.Context, actor *shared.Actor, g *Group) (*Group, error) {
	if err := s.authorize(ctx, actor, g.SiteID, g.Kind); err != nil {
		return nil, err
	}
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return nil, fmt.Errorf("group name required: %w", shared.ErrValidationFailed)
	}
	return s.repo.CreateGroup(ctx, g)
}

// DeleteGroup removes a group; items in it move to the "all" group.
func (s *Service) DeleteGroup(ctx context.Context, actor *shared.Actor, siteID int64, kind Kind, id int64) error {
	if err := s.authorize(ctx, actor, siteID, kind); err != nil {
		return err
	}
	if id == 0 {
		return fmt.Errorf("the all group cannot be deleted: %w", shared.ErrValidationFailed)
	}
	return s.repo.DeleteGroup(ctx, siteID, id)
}

// ListItems returns library items. GroupID 0 lists across every group.
func (s *Service) ListItems(ctx context.Context, actor *shared.Actor, siteID int64, kind Kind, groupID int64, limit, offset int32) ([]Item, error) {
	if err := s.authorize(ctx, actor, siteID, kind); err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, siteID, kind, groupID, limit, offset)
}

// GetItem returns one library item.
func (s *Service) GetItem(ctx context.Context, actor *shared.Actor, siteID int64, kind Kind, id int64) (*Item, error) {
	if err := s.authorize(ctx, actor, siteID, kind); err != nil {
		return nil, err
	}
	item, err := s.repo.GetItem(ctx, siteID, id)
	if err != nil {
		return nil, err
	}
	if item.Kind != kind {
		return nil, shared.ErrNotFound
	}
	return item, nil
}

// CreateItem registers an uploaded asset. A nonzero group must exist in
// the same site and library.
func (s *Service) CreateItem(ctx context.Context, actor *shared.Actor, item *Item) (*Item, error) {
	if err := s.authorize(ctx, actor, item.SiteID, item.Kind); err != nil {
		return nil, err
	}
	item.Title = strings.TrimSpace(item.Title)
	item.FileName = strings.TrimSpace(item.FileName)
	if item.FileName == "" {
		return nil, fmt.Errorf("file name required: %w", shared.ErrValidationFailed)
	}
	if item.Title == "" {
		item.Title = item.FileName
	}
	if item.GroupID != 0 {
		group, err := s.repo.GetGroup(ctx, item.SiteID, item.GroupID)
		if err != nil {
			return nil, err
		}
		if group.Kind != item.Kind {
			return nil, fmt.Errorf("group belongs to the %s library: %w", group.Kind, shared.ErrValidationFailed)
		}
	}
	return s.repo.CreateItem(ctx, item)
}

// DeleteItem removes an asset record.
func (s *Service) DeleteItem(ctx context.Context, actor *shared.Actor, siteID int64, kind Kind, id int64) error {
	if err := s.authorize(ctx, actor, siteID, kind); err != nil {
		return err
	}
	if _, err := s.GetItem(ctx, actor, siteID, kind, id); err != nil {
		return err
	}
	return s.repo.DeleteItem(ctx, siteID, id)
}
