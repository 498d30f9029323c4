package models

import (
	"time"
)

// ActivityLog 用户行为流水，按时间倒序展示在"我的动态"页
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Action    string    `gorm:"size:100;not null" json:"action"`   // 动作描述
	ItemType  string    `gorm:"size:20" json:"item_type"`          // "track", "comment", "playlist"
	ItemID    uint      `gorm:"index" json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}
