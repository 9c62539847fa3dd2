package entity

import "time"

type Badge struct {
	ID          uint64 `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(64);not null" json:"name"`
	Description string `gorm:"type:varchar(255)" json:"description"`
	Rarity      string `gorm:"type:varchar(16);not null;default:common" json:"rarity"`
	Price       int64  `gorm:"not null" json:"price"`
}

// BadgeOwnership rows are only created by the purchase procedure.
type BadgeOwnership struct {
	UserID      uint64 `gorm:"primaryKey;autoIncrement:false"`
	BadgeID     uint64 `gorm:"primaryKey;autoIncrement:false"`
	PurchasedAt time.Time
}
