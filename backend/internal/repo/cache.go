package repo

import (
	"context"

	"community-service/backend/internal/entity"
)

// CounterCache serves post counters in front of PostStatsRepo.
type CounterCache interface {
	GetCount(ctx context.Context, postID uint64, field CounterField) (uint64, error)
	// AddCount applies a committed change to a cached counter, floored at 0. A
	// counter that is not cached is left alone.
	AddCount(ctx context.Context, postID uint64, field CounterField, delta int64) error
	Invalidate(ctx context.Context, postID uint64) error
}

// StoreSnapshot is the per-user part of the badge store.
type StoreSnapshot struct {
	Points          int64    `json:"points"`
	EquippedBadgeID *uint64  `json:"equippedBadgeId"`
	OwnedBadgeIDs   []uint64 `json:"ownedBadgeIds"`
}

type StoreCache interface {
	Badges(ctx context.Context) ([]entity.Badge, error)
	Rarities(ctx context.Context) (map[uint64]string, error)
	UserStore(ctx context.Context, userID uint64) (StoreSnapshot, error)
	InvalidateUser(ctx context.Context, userID uint64) error
	InvalidateCatalog(ctx context.Context) error
}
