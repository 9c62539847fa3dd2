package mysqldb

import (
	"context"

	"gorm.io/gorm"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

type mysqlBadgeRepo struct {
	db *gorm.DB
}

func NewMySQLBadgeRepo(db *gorm.DB) repo.BadgeRepo {
	return &mysqlBadgeRepo{db: db}
}

func (r *mysqlBadgeRepo) ListBadges(ctx context.Context) ([]entity.Badge, error) {
	var badges []entity.Badge
	if err := r.db.WithContext(ctx).Order("price ASC, id ASC").Find(&badges).Error; err != nil {
		return nil, err
	}
	return badges, nil
}

func (r *mysqlBadgeRepo) ListOwnedBadgeIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&entity.BadgeOwnership{}).
		Where("user_id = ?", userID).
		Order("badge_id ASC").
		Pluck("badge_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *mysqlBadgeRepo) OwnsBadge(ctx context.Context, userID, badgeID uint64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.BadgeOwnership{}).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		Count(&n).Error
	return n > 0, err
}
