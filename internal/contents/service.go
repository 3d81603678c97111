package contents

import (
	"context"
	"fmt"
	"strings"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/shared"
	"github.com/lattice-cms/lattice/internal/workflow"
)

// Navigator resolves the channel name path for the layer view.
// Implemented by hierarchy.Service.
type Navigator interface {
	ChannelNameNavigation(ctx context.Context, siteID, channelID int64, sep string) (string, error)
}

// Checker projects the workflow state for the layer view. Implemented by
// workflow.Service.
type Checker interface {
	GetCheckState(ctx context.Context, actor *shared.Actor, siteID, contentID int64) (*workflow.CheckState, error)
}

// Service handles content CRUD. Authorization happens here rather than in
// the handler because the capability scope depends on the content's
// channel, which only the service resolves.
type Service struct {
	repo    RepositoryPort
	facade  *authz.Facade
	nav     Navigator
	checker Checker
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, facade *authz.Facade, nav Navigator, checker Checker) *Service {
	return &Service{repo: repo, facade: facade, nav: nav, checker: checker}
}

// Get returns one content after a view check at its channel.
func (s *Service) Get(ctx context.Context, actor *shared.Actor, siteID, id int64) (*Content, error) {
	if _, err := s.facade.Authorize(ctx, actor, authz.ContentScope(siteID, 0, id), authz.ContentView); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, siteID, id)
}

// Layer assembles the content layer page: the content, its channel name
// navigation and the workflow projection with the actor's allowed moves.
func (s *Service) Layer(ctx context.Context, actor *shared.Actor, siteID, id int64) (*LayerView, error) {
	content, err := s.Get(ctx, actor, siteID, id)
	if err != nil {
		return nil, err
	}
	view := &LayerView{Content: *content}
	if nav, err := s.nav.ChannelNameNavigation(ctx, siteID, content.ChannelID, ""); err == nil {
		view.ChannelNavigation = nav
	}
	check, err := s.checker.GetCheckState(ctx, actor, siteID, id)
	if err != nil {
		return nil, err
	}
	view.Check = check
	return view, nil
}

// List returns contents of a site, optionally narrowed to one channel.
// The view check runs at the channel when one is given, otherwise at the
// site.
func (s *Service) List(ctx context.Context, actor *shared.Actor, siteID int64, filter ListFilter) ([]Content, error) {
	scope := authz.SiteScope(siteID)
	if filter.ChannelID != 0 {
		scope = authz.ChannelScope(siteID, filter.ChannelID)
	}
	if _, err := s.facade.Authorize(ctx, actor, scope, authz.ContentView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, siteID, filter)
}

// Create adds new content in draft state, authored by the actor.
func (s *Service) Create(ctx context.Context, actor *shared.Actor, c *Content) (*Content, error) {
	if err := normalize(c); err != nil {
		return nil, err
	}
	if _, err := s.facade.Authorize(ctx, actor, authz.ChannelScope(c.SiteID, c.ChannelID), authz.ContentAdd); err != nil {
		return nil, err
	}
	c.AuthorKind = actor.Kind
	c.AuthorID = actor.ID
	c.CheckState = workflow.StateDraft
	c.Checked = false
	return s.repo.Create(ctx, c)
}

// Update edits content fields. The check state is untouched here; moving
// it is the workflow's job.
func (s *Service) Update(ctx context.Context, actor *shared.Actor, c *Content) (*Content, error) {
	if c.ID <= 0 {
		return nil, fmt.Errorf("content id required: %w", shared.ErrValidationFailed)
	}
	if err := normalize(c); err != nil {
		return nil, err
	}
	if _, err := s.facade.Authorize(ctx, actor, authz.ContentScope(c.SiteID, 0, c.ID), authz.ContentEdit); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, c)
}

// Delete removes content after a delete check at its channel.
func (s *Service) Delete(ctx context.Context, actor *shared.Actor, siteID, id int64) error {
	if _, err := s.facade.Authorize(ctx, actor, authz.ContentScope(siteID, 0, id), authz.ContentDelete); err != nil {
		return err
	}
	return s.repo.Delete(ctx, siteID, id)
}

func normalize(c *Content) error {
	c.Title = strings.TrimSpace(c.Title)
	if c.SiteID <= 0 {
		return fmt.Errorf("site id required: %w", shared.ErrValidationFailed)
	}
	if c.Title == "" {
		return fmt.Errorf("content title required: %w", shared.ErrValidationFailed)
	}
	return nil
}
