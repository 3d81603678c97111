package channels

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lattice-cms/lattice/internal/shared"
)

// Service handles channel tree logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get fetches one channel within a site.
func (s *Service) Get(ctx context.Context, siteID, id int64) (*Channel, error) {
	return s.repo.Get(ctx, siteID, id)
}

// Tree returns the channel tree of a site. Children are ordered by taxis.
func (s *Service) Tree(ctx context.Context, siteID int64) ([]*Node, error) {
	all, err := s.repo.ListBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	nodes := make(map[int64]*Node, len(all))
	for i := range all {
		nodes[all[i].ID] = &Node{Channel: all[i]}
	}
	var roots []*Node
	for _, n := range nodes {
		if parent, ok := nodes[n.ParentID]; ok && n.ParentID != n.ID {
			parent.Children = append(parent.Children, n)
			continue
		}
		roots = append(roots, n)
	}
	sortNodes(roots)
	for _, n := range nodes {
		sortNodes(n.Children)
	}
	return roots, nil
}

// Create adds a channel under a parent. ParentID 0 creates a site root.
func (s *Service) Create(ctx context.Context, ch *Channel) (*Channel, error) {
	if err := normalize(ch); err != nil {
		return nil, err
	}
	if ch.ParentID != 0 {
		if _, err := s.repo.Get(ctx, ch.SiteID, ch.ParentID); err != nil {
			return nil, err
		}
	}
	return s.repo.Create(ctx, ch)
}

// Update modifies a channel's name, index name and ordering.
func (s *Service) Update(ctx context.Context, ch *Channel) (*Channel, error) {
	if ch.ID <= 0 {
		return nil, fmt.Errorf("channel id required: %w", shared.ErrValidationFailed)
	}
	if err := normalize(ch); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, ch)
}

// Delete removes a channel. Channels still carrying content in their
// subtree cannot be deleted.
func (s *Service) Delete(ctx context.Context, siteID, id int64) error {
	subtree, err := s.repo.DescendantIDs(ctx, siteID, id)
	if err != nil {
		return err
	}
	if len(subtree) == 0 {
		return &shared.NotFoundError{Level: shared.NotFoundChannel, SiteID: siteID, ChannelID: id}
	}
	count, err := s.repo.CountContents(ctx, subtree)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("channel subtree holds %d contents: %w", count, shared.ErrValidationFailed)
	}
	if len(subtree) > 1 {
		return fmt.Errorf("channel has child channels: %w", shared.ErrValidationFailed)
	}
	deleted, err := s.repo.Delete(ctx, siteID, id)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return &shared.NotFoundError{Level: shared.NotFoundChannel, SiteID: siteID, ChannelID: id}
	}
	return nil
}

func normalize(ch *Channel) error {
	ch.Name = strings.TrimSpace(ch.Name)
	ch.IndexName = strings.TrimSpace(ch.IndexName)
	if ch.SiteID <= 0 {
		return fmt.Errorf("site id required: %w", shared.ErrValidationFailed)
	}
	if ch.Name == "" {
		return fmt.Errorf("channel name required: %w", shared.ErrValidationFailed)
	}
	return nil
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Taxis != nodes[j].Taxis {
			return nodes[i].Taxis < nodes[j].Taxis
		}
		return nodes[i].ID < nodes[j].ID
	})
}
