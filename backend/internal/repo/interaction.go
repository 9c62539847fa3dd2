package repo

import (
	"context"
	"errors"

	"community-service/backend/internal/entity"
)

var ErrNotFound = errors.New("record not found")

// EdgeKind names an association set between a user and a target.
type EdgeKind string

const (
	EdgeLike     EdgeKind = "like"
	EdgeBookmark EdgeKind = "bookmark"
	EdgeFollow   EdgeKind = "follow"
)

// CounterField is the denormalized post counter paired with an edge kind.
type CounterField string

const (
	CounterLikes     CounterField = "likes"
	CounterBookmarks CounterField = "bookmarks"
	CounterComments  CounterField = "comments"
	CounterViews     CounterField = "views"
)

// ToggleOutcome is what a toggle procedure reports back.
// Changed is false when a concurrent toggle inserted the same edge first.
type ToggleOutcome struct {
	Active  bool
	Count   uint64
	OwnerID uint64
	Changed bool
}

type Purchase struct {
	BadgeID uint64
	Price   int64
	Balance int64
}

// Procedures are the multi-statement mutations; every method commits all of its
// effects or none of them.
type Procedures interface {
	Toggle(ctx context.Context, kind EdgeKind, userID, targetID uint64) (ToggleOutcome, error)
	PurchaseBadge(ctx context.Context, userID, badgeID uint64) (Purchase, error)
	// RecordView returns the post's view count after the increment.
	RecordView(ctx context.Context, userID, postID uint64) (uint64, error)
}

type PostStatsRepo interface {
	// GetPostStats returns nil, nil when the post does not exist.
	GetPostStats(ctx context.Context, postID uint64) (*entity.Post, error)
}

type EdgeRepo interface {
	HasEdge(ctx context.Context, kind EdgeKind, userID, targetID uint64) (bool, error)
}

type ProfileRepo interface {
	GetProfile(ctx context.Context, userID uint64) (*entity.Profile, error)
	SetEquippedBadge(ctx context.Context, userID uint64, badgeID *uint64) error
}

type BadgeRepo interface {
	ListBadges(ctx context.Context) ([]entity.Badge, error)
	ListOwnedBadgeIDs(ctx context.Context, userID uint64) ([]uint64, error)
	OwnsBadge(ctx context.Context, userID, badgeID uint64) (bool, error)
}

type HistoryRepo interface {
	ListHistory(ctx context.Context, userID uint64, limit int) ([]entity.HistoryView, error)
	DeleteHistory(ctx context.Context, userID uint64) (int64, error)
}

type NotificationRepo interface {
	// CreateNotification reports false when a notification with the same id
	// already exists.
	CreateNotification(ctx context.Context, n *entity.Notification) (bool, error)
	ListNotifications(ctx context.Context, recipientID uint64, limit int, unreadOnly bool) ([]entity.Notification, error)
	CountUnread(ctx context.Context, recipientID uint64) (int64, error)
	// MarkRead marks the given ids, or every notification when ids is empty.
	MarkRead(ctx context.Context, recipientID uint64, ids []string) (int64, error)
	DeleteNotification(ctx context.Context, recipientID uint64, id string) error
	DeleteNotifications(ctx context.Context, recipientID uint64) (int64, error)
}
