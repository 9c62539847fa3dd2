package mysqldb

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

type mysqlProfileRepo struct {
	db *gorm.DB
}

func NewMySQLProfileRepo(db *gorm.DB) repo.ProfileRepo {
	return &mysqlProfileRepo{db: db}
}

func (r *mysqlProfileRepo) GetProfile(ctx context.Context, userID uint64) (*entity.Profile, error) {
	var p entity.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SetEquippedBadge only ever touches the row keyed by userID.
func (r *mysqlProfileRepo) SetEquippedBadge(ctx context.Context, userID uint64, badgeID *uint64) error {
	res := r.db.WithContext(ctx).
		Model(&entity.Profile{}).
		Where("user_id = ?", userID).
		Update("equipped_badge_id", badgeID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 affected rows when the value is unchanged, so tell the
		// two cases apart before calling it missing.
		var n int64
		if err := r.db.WithContext(ctx).Model(&entity.Profile{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return repo.ErrNotFound
		}
	}
	return nil
}
