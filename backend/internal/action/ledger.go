package action

import (
	"context"

	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

type PurchaseResult struct {
	BadgeID uint64 `json:"badgeId"`
	Price   int64  `json:"price"`
	Balance int64  `json:"balance"`
}

// PurchaseBadge debits the badge price from the caller and grants the badge in
// one procedure call. A badge already owned is rejected, never bought twice.
func (s *Service) PurchaseBadge(ctx context.Context, badgeID uint64) (PurchaseResult, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return PurchaseResult{}, err
	}
	if badgeID == 0 {
		return PurchaseResult{}, NewError(KindInvalidArgument, "invalid badge id")
	}

	p, err := s.Procedures.PurchaseBadge(ctx, me.UserID, badgeID)
	if err != nil {
		return PurchaseResult{}, s.fail("purchase badge", err)
	}
	s.invalidateStore(ctx, me.UserID)
	return PurchaseResult{BadgeID: p.BadgeID, Price: p.Price, Balance: p.Balance}, nil
}

type EquipResult struct {
	EquippedBadgeID *uint64 `json:"equippedBadgeId"`
}

// EquipBadge points the caller's profile at an owned badge; nil unequips.
func (s *Service) EquipBadge(ctx context.Context, badgeID *uint64) (EquipResult, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return EquipResult{}, err
	}
	if badgeID != nil {
		if *badgeID == 0 {
			return EquipResult{}, NewError(KindInvalidArgument, "invalid badge id")
		}
		owned, err := s.Badges.OwnsBadge(ctx, me.UserID, *badgeID)
		if err != nil {
			return EquipResult{}, s.fail("equip badge", err)
		}
		if !owned {
			return EquipResult{}, NewError(KindNotOwned, "you do not own this badge")
		}
	}

	if err := s.Profiles.SetEquippedBadge(ctx, me.UserID, badgeID); err != nil {
		return EquipResult{}, s.fail("equip badge", err)
	}
	s.invalidateStore(ctx, me.UserID)
	return EquipResult{EquippedBadgeID: badgeID}, nil
}

func (s *Service) invalidateStore(ctx context.Context, userID uint64) {
	if err := s.StoreCache.InvalidateUser(ctx, userID); err != nil {
		s.log.Warn("invalidate store view", zap.Uint64("userId", userID), zap.Error(err))
	}
}

type StoreBadge struct {
	entity.Badge
	Owned    bool `json:"owned"`
	Equipped bool `json:"equipped"`
}

type StoreView struct {
	Points          int64        `json:"points"`
	EquippedBadgeID *uint64      `json:"equippedBadgeId"`
	Badges          []StoreBadge `json:"badges"`
}

// Store lists the catalog with the caller's balance and inventory.
func (s *Service) Store(ctx context.Context) (StoreView, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return StoreView{}, err
	}

	var (
		catalog []entity.Badge
		snap    repo.StoreSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = s.StoreCache.Badges(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap, err = s.StoreCache.UserStore(gctx, me.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return StoreView{}, s.fail("store view", err)
	}

	owned := make(map[uint64]struct{}, len(snap.OwnedBadgeIDs))
	for _, id := range snap.OwnedBadgeIDs {
		owned[id] = struct{}{}
	}
	view := StoreView{
		Points:          snap.Points,
		EquippedBadgeID: snap.EquippedBadgeID,
		Badges:          make([]StoreBadge, 0, len(catalog)),
	}
	for _, b := range catalog {
		_, isOwned := owned[b.ID]
		view.Badges = append(view.Badges, StoreBadge{
			Badge:    b,
			Owned:    isOwned,
			Equipped: snap.EquippedBadgeID != nil && *snap.EquippedBadgeID == b.ID,
		})
	}
	return view, nil
}

// BadgeRarities is public; it does not need a caller.
func (s *Service) BadgeRarities(ctx context.Context) (map[uint64]string, error) {
	rarities, err := s.StoreCache.Rarities(ctx)
	if err != nil {
		return nil, s.fail("badge rarities", err)
	}
	return rarities, nil
}
