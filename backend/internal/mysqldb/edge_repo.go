package mysqldb

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

// edgeSpec describes where an edge kind lives and which counter it drives.
type edgeSpec struct {
	model     func(userID, targetID uint64) any
	userCol   string
	targetCol string

	counterTable string
	counterKey   string
	counterCol   string
	// ownerCol is the column holding the user who receives the interaction.
	ownerCol string
}

var edgeSpecs = map[repo.EdgeKind]edgeSpec{
	repo.EdgeLike: {
		model: func(userID, targetID uint64) any {
			return &entity.PostLike{UserID: userID, PostID: targetID}
		},
		userCol:      "user_id",
		targetCol:    "post_id",
		counterTable: "posts",
		counterKey:   "id",
		counterCol:   "like_count",
		ownerCol:     "author_id",
	},
	repo.EdgeBookmark: {
		model: func(userID, targetID uint64) any {
			return &entity.PostBookmark{UserID: userID, PostID: targetID}
		},
		userCol:      "user_id",
		targetCol:    "post_id",
		counterTable: "posts",
		counterKey:   "id",
		counterCol:   "bookmark_count",
		ownerCol:     "author_id",
	},
	repo.EdgeFollow: {
		model: func(userID, targetID uint64) any {
			return &entity.Follow{FollowerID: userID, FolloweeID: targetID}
		},
		userCol:      "follower_id",
		targetCol:    "followee_id",
		counterTable: "profiles",
		counterKey:   "user_id",
		counterCol:   "follower_count",
		ownerCol:     "user_id",
	},
}

func lookupEdge(kind repo.EdgeKind) (edgeSpec, error) {
	spec, ok := edgeSpecs[kind]
	if !ok {
		return edgeSpec{}, fmt.Errorf("unknown edge kind %q", kind)
	}
	return spec, nil
}

func (s edgeSpec) pairWhere(tx *gorm.DB, userID, targetID uint64) *gorm.DB {
	return tx.Where(s.userCol+" = ? AND "+s.targetCol+" = ?", userID, targetID)
}

type mysqlEdgeRepo struct {
	db *gorm.DB
}

func NewMySQLEdgeRepo(db *gorm.DB) repo.EdgeRepo {
	return &mysqlEdgeRepo{db: db}
}

func (r *mysqlEdgeRepo) HasEdge(ctx context.Context, kind repo.EdgeKind, userID, targetID uint64) (bool, error) {
	spec, err := lookupEdge(kind)
	if err != nil {
		return false, err
	}
	var n int64
	err = spec.pairWhere(r.db.WithContext(ctx).Model(spec.model(0, 0)), userID, targetID).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
