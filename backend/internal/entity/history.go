package entity

import "time"

type HistoryView struct {
	ID       uint64    `gorm:"primaryKey" json:"id"`
	UserID   uint64    `gorm:"index:idx_history_user_time,priority:1;not null" json:"userId"`
	PostID   uint64    `gorm:"not null" json:"postId"`
	ViewedAt time.Time `gorm:"index:idx_history_user_time,priority:2" json:"viewedAt"`
}
