package hierarchy

import (
	"context"
	"strings"

	"github.com/lattice-cms/lattice/internal/shared"
)

// RepositoryPort defines the lookups the accessor needs.
type RepositoryPort interface {
	GetSite(ctx context.Context, siteID int64) (*SiteRef, error)
	GetChannel(ctx context.Context, siteID, channelID int64) (*ChannelRef, error)
	GetContent(ctx context.Context, channelID, contentID int64) (*ContentRef, error)
	FindContent(ctx context.Context, contentID int64) (*ContentRef, error)
	ChannelPath(ctx context.Context, siteID, channelID int64) ([]string, error)
}

// Service resolves and validates site → channel → content identity chains.
// It exists to stop an authenticated caller from operating on a channel or
// content that belongs to another site's tree by guessing IDs.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Validate confirms the chain named by the IDs. channelID and contentID
// may be zero when that level is absent. When contentID is given without a
// channelID the content's own channel is resolved and verified against the
// site. Failures are NotFoundError values carrying the failing level.
func (s *Service) Validate(ctx context.Context, siteID, channelID, contentID int64) (*Chain, error) {
	site, err := s.repo.GetSite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, &shared.NotFoundError{Level: shared.NotFoundSite, SiteID: siteID}
	}
	chain := &Chain{Site: site}

	if channelID == 0 && contentID != 0 {
		content, err := s.repo.FindContent(ctx, contentID)
		if err != nil {
			return nil, err
		}
		if content == nil || content.SiteID != siteID {
			return nil, &shared.NotFoundError{Level: shared.NotFoundContent, SiteID: siteID, ContentID: contentID}
		}
		channelID = content.ChannelID
	}

	if channelID != 0 {
		channel, err := s.repo.GetChannel(ctx, siteID, channelID)
		if err != nil {
			return nil, err
		}
		if channel == nil {
			return nil, &shared.NotFoundError{Level: shared.NotFoundChannel, SiteID: siteID, ChannelID: channelID}
		}
		chain.Channel = channel
	}

	if contentID != 0 {
		content, err := s.repo.GetContent(ctx, channelID, contentID)
		if err != nil {
			return nil, err
		}
		if content == nil || content.SiteID != siteID {
			return nil, &shared.NotFoundError{Level: shared.NotFoundContent, SiteID: siteID, ChannelID: channelID, ContentID: contentID}
		}
		chain.Content = content
	}

	return chain, nil
}

// ChannelNameNavigation returns the root → leaf channel names joined with
// the given separator.
func (s *Service) ChannelNameNavigation(ctx context.Context, siteID, channelID int64, sep string) (string, error) {
	names, err := s.repo.ChannelPath(ctx, siteID, channelID)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", &shared.NotFoundError{Level: shared.NotFoundChannel, SiteID: siteID, ChannelID: channelID}
	}
	if sep == "" {
		sep = " > "
	}
	return strings.Join(names, sep), nil
}
