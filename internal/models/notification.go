package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeCommentPending  NotificationType = "comment_pending"  // 曲目有新评论待审核
	NotificationTypeCommentApproved NotificationType = "comment_approved" // 评论通过审核
	NotificationTypeCommentRejected NotificationType = "comment_rejected" // 评论被拒绝
	NotificationTypeSystem          NotificationType = "system"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"` // Receiver
	User      User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ActorID   *uint            `gorm:"index" json:"actor_id"` // Sender
	Actor     User             `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	TrackID   *uint            `gorm:"index" json:"track_id"`
	CommentID *uint            `gorm:"index" json:"comment_id"`
	Reason    string           `gorm:"type:text" json:"reason"` // 通知详细内容
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
