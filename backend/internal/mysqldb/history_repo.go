package mysqldb

import (
	"context"

	"gorm.io/gorm"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

type mysqlHistoryRepo struct {
	db *gorm.DB
}

func NewMySQLHistoryRepo(db *gorm.DB) repo.HistoryRepo {
	return &mysqlHistoryRepo{db: db}
}

func (r *mysqlHistoryRepo) ListHistory(ctx context.Context, userID uint64, limit int) ([]entity.HistoryView, error) {
	var rows []entity.HistoryView
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("viewed_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mysqlHistoryRepo) DeleteHistory(ctx context.Context, userID uint64) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&entity.HistoryView{})
	return res.RowsAffected, res.Error
}
