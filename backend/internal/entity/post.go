package entity

import "time"

// Post only carries the interaction columns; body and rich text live in the content service.
type Post struct {
	ID            uint64 `gorm:"primaryKey"`
	AuthorID      uint64 `gorm:"index;not null"`
	Title         string `gorm:"type:varchar(255)"`
	LikeCount     uint64 `gorm:"default:0"`
	BookmarkCount uint64 `gorm:"default:0"`
	CommentCount  uint64 `gorm:"default:0"`
	ViewCount     uint64 `gorm:"default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
