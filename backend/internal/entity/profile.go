package entity

import "time"

type Profile struct {
	UserID          uint64 `gorm:"primaryKey;autoIncrement:false"`
	Username        string `gorm:"type:varchar(64);uniqueIndex"`
	Points          int64  `gorm:"not null;default:0"`
	EquippedBadgeID *uint64
	FollowerCount   uint64 `gorm:"default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
