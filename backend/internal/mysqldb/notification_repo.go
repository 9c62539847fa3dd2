package mysqldb

import (
	"context"

	"gorm.io/gorm"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

type mysqlNotificationRepo struct {
	db *gorm.DB
}

func NewMySQLNotificationRepo(db *gorm.DB) repo.NotificationRepo {
	return &mysqlNotificationRepo{db: db}
}

func (r *mysqlNotificationRepo) CreateNotification(ctx context.Context, n *entity.Notification) (bool, error) {
	err := r.db.WithContext(ctx).Create(n).Error
	if isDuplicateKey(err) {
		// redelivered event, the notification already exists
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *mysqlNotificationRepo) ListNotifications(ctx context.Context, recipientID uint64, limit int, unreadOnly bool) ([]entity.Notification, error) {
	q := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var rows []entity.Notification
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mysqlNotificationRepo) CountUnread(ctx context.Context, recipientID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}

func (r *mysqlNotificationRepo) MarkRead(ctx context.Context, recipientID uint64, ids []string) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *mysqlNotificationRepo) DeleteNotification(ctx context.Context, recipientID uint64, id string) error {
	res := r.db.WithContext(ctx).
		Where("recipient_id = ? AND id = ?", recipientID, id).
		Delete(&entity.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *mysqlNotificationRepo) DeleteNotifications(ctx context.Context, recipientID uint64) (int64, error) {
	res := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID).Delete(&entity.Notification{})
	return res.RowsAffected, res.Error
}
