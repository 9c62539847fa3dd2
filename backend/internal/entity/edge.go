package entity

import "time"

// Edge tables use the (user, target) pair as primary key, so the database rejects a
// second like/bookmark/follow for the same pair.

type PostLike struct {
	UserID    uint64 `gorm:"primaryKey;autoIncrement:false"`
	PostID    uint64 `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}

type PostBookmark struct {
	UserID    uint64 `gorm:"primaryKey;autoIncrement:false"`
	PostID    uint64 `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}

type Follow struct {
	FollowerID uint64 `gorm:"primaryKey;autoIncrement:false"`
	FolloweeID uint64 `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt  time.Time
}
