package action

import (
	"context"
	"strings"

	"community-service/backend/internal/entity"
)

func (s *Service) ListNotifications(ctx context.Context, limit int, unreadOnly bool) ([]entity.Notification, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.Notifications.ListNotifications(ctx, me.UserID, clampLimit(limit), unreadOnly)
	if err != nil {
		return nil, s.fail("list notifications", err)
	}
	if rows == nil {
		rows = []entity.Notification{}
	}
	return rows, nil
}

type UnreadResult struct {
	Unread int64 `json:"unread"`
}

func (s *Service) UnreadCount(ctx context.Context) (UnreadResult, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return UnreadResult{}, err
	}
	n, err := s.Notifications.CountUnread(ctx, me.UserID)
	if err != nil {
		return UnreadResult{}, s.fail("count unread", err)
	}
	return UnreadResult{Unread: n}, nil
}

type MarkReadResult struct {
	Updated int64 `json:"updated"`
}

// MarkNotificationsRead marks the given notifications, or all of the caller's
// when ids is empty. Ids of other users are silently ignored.
func (s *Service) MarkNotificationsRead(ctx context.Context, ids []string) (MarkReadResult, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return MarkReadResult{}, err
	}
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	if len(ids) > 0 && len(clean) == 0 {
		return MarkReadResult{}, NewError(KindInvalidArgument, "invalid notification ids")
	}
	if len(clean) > MaxListLimit {
		return MarkReadResult{}, NewError(KindInvalidArgument, "too many notification ids")
	}
	n, err := s.Notifications.MarkRead(ctx, me.UserID, clean)
	if err != nil {
		return MarkReadResult{}, s.fail("mark notifications read", err)
	}
	return MarkReadResult{Updated: n}, nil
}

func (s *Service) DeleteNotification(ctx context.Context, id string) error {
	me, err := s.caller(ctx)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return NewError(KindInvalidArgument, "invalid notification id")
	}
	if err := s.Notifications.DeleteNotification(ctx, me.UserID, id); err != nil {
		return s.fail("delete notification", err)
	}
	return nil
}

// ClearNotifications deletes every notification of the caller.
func (s *Service) ClearNotifications(ctx context.Context) (DeleteResult, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return DeleteResult{}, err
	}
	n, err := s.Notifications.DeleteNotifications(ctx, me.UserID)
	if err != nil {
		return DeleteResult{}, s.fail("clear notifications", err)
	}
	return DeleteResult{Deleted: n}, nil
}
