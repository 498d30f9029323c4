package models

import (
	"time"
)

// CommentStatus 评论审核状态
type CommentStatus string

const (
	CommentStatusPending  CommentStatus = "pending"  // 待审核（初始状态）
	CommentStatusApproved CommentStatus = "approved" // 审核通过（终态）
	CommentStatusRejected CommentStatus = "rejected" // 审核拒绝（终态）
)

// Valid 判断是否为合法状态值
func (s CommentStatus) Valid() bool {
	switch s {
	case CommentStatusPending, CommentStatusApproved, CommentStatusRejected:
		return true
	}
	return false
}

// Comment 曲目评论。提交后进入 pending，由曲目作者审核通过后才公开展示。
// 状态只允许 pending -> approved / pending -> rejected，均为终态，不支持撤销。
type Comment struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	Cid             string        `gorm:"uniqueIndex;size:8;not null" json:"cid"`
	TrackID         uint          `gorm:"not null;index:idx_track_status" json:"track_id"`
	Track           Track         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"track"`
	UserID          uint          `gorm:"not null;index" json:"user_id"`
	User            User          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	UserDisplayName string        `gorm:"size:50;not null" json:"user_display_name"` // 提交时的用户名快照，之后改名不回填
	Content         string        `gorm:"type:text;not null" json:"content"`
	Status          CommentStatus `gorm:"type:varchar(10);not null;default:'pending';index:idx_track_status" json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	ModeratedAt     *time.Time    `json:"moderated_at"` // 首次移出 pending 时写入，pending 期间为空
}
