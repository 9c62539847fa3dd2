package mysqldb

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

type mysqlPostRepo struct {
	db *gorm.DB
}

func NewMySQLPostRepo(db *gorm.DB) repo.PostStatsRepo {
	return &mysqlPostRepo{db: db}
}

func (r *mysqlPostRepo) GetPostStats(ctx context.Context, postID uint64) (*entity.Post, error) {
	var post entity.Post
	err := r.db.WithContext(ctx).Where("id = ?", postID).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}
