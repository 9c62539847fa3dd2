package entity

import "time"

const (
	NotificationPostLiked    = "post_liked"
	NotificationUserFollowed = "user_followed"
)

type Notification struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RecipientID uint64    `gorm:"index:idx_notification_recipient,priority:1;not null" json:"recipientId"`
	ActorID     uint64    `gorm:"not null" json:"actorId"`
	Type        string    `gorm:"type:varchar(32);not null" json:"type"`
	PostID      *uint64   `json:"postId,omitempty"`
	IsRead      bool      `gorm:"default:false" json:"isRead"`
	CreatedAt   time.Time `gorm:"index:idx_notification_recipient,priority:2" json:"createdAt"`
}
