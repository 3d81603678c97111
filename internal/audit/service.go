package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/shared"
)

// Service records and reads the audit trail. Recording is best effort:
// a failing audit write never fails the request that triggered it.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService creates an audit service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// RecordDenied satisfies authz.DeniedRecorder.
func (s *Service) RecordDenied(ctx context.Context, actor *shared.Actor, scope authz.Scope, capability authz.Capability, reason error) {
	event := &Event{
		Kind:      KindDenied,
		ActorKey:  actor.Key(),
		SiteID:    scope.SiteID,
		ChannelID: scope.ChannelID,
		ContentID: scope.ContentID,
		Detail:    fmt.Sprintf("%s: %v", capability, reason),
	}
	if err := s.repo.Insert(ctx, event); err != nil {
		s.logger.Warn("audit denied write failed", slog.Any("error", err))
	}
}

// RecordTransition logs an applied check-state move.
func (s *Service) RecordTransition(ctx context.Context, actorKey string, siteID, channelID, contentID int64, action, from, to string) {
	event := &Event{
		Kind:      KindTransition,
		ActorKey:  actorKey,
		SiteID:    siteID,
		ChannelID: channelID,
		ContentID: contentID,
		Detail:    fmt.Sprintf("%s: %s -> %s", action, from, to),
	}
	if err := s.repo.Insert(ctx, event); err != nil {
		s.logger.Warn("audit transition write failed", slog.Any("error", err))
	}
}

// Timeline returns a page of audit events, newest first. The extra row
// fetched beyond the page size signals whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.Window(ctx, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := int32(len(rows)) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	return Result{
		Rows:   rows,
		Paging: PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext},
	}, nil
}

// Retain trims entries older than the retention window.
func (s *Service) Retain(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return s.repo.DeleteBefore(ctx, time.Now().Add(-retention))
}

var _ authz.DeniedRecorder = (*Service)(nil)
