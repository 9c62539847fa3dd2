package action

import (
	"context"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

type ViewResult struct {
	Views uint64 `json:"views"`
}

// RecordView appends a history row for the caller and counts the view.
func (s *Service) RecordView(ctx context.Context, postID uint64) (ViewResult, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return ViewResult{}, err
	}
	if postID == 0 {
		return ViewResult{}, NewError(KindInvalidArgument, "invalid post id")
	}
	views, err := s.Procedures.RecordView(ctx, me.UserID, postID)
	if err != nil {
		return ViewResult{}, s.fail("record view", err)
	}
	s.addCachedCount(ctx, postID, repo.CounterViews, 1)
	return ViewResult{Views: views}, nil
}

// ListHistory returns the caller's views, newest first.
func (s *Service) ListHistory(ctx context.Context, limit int) ([]entity.HistoryView, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.History.ListHistory(ctx, me.UserID, clampLimit(limit))
	if err != nil {
		return nil, s.fail("list history", err)
	}
	if rows == nil {
		rows = []entity.HistoryView{}
	}
	return rows, nil
}

type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}

// ClearHistory deletes every history row of the caller and nobody else's.
func (s *Service) ClearHistory(ctx context.Context) (DeleteResult, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return DeleteResult{}, err
	}
	n, err := s.History.DeleteHistory(ctx, me.UserID)
	if err != nil {
		return DeleteResult{}, s.fail("clear history", err)
	}
	return DeleteResult{Deleted: n}, nil
}
