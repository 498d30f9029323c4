package services

import (
	"ispmedia/internal/db"
	"ispmedia/internal/models"
	"log"
)

// 行为流水动作常量
const (
	ActionTrackUpload      = "上传曲目"
	ActionTrackDelete      = "删除曲目"
	ActionCommentSubmit    = "发表评论"
	ActionCommentApprove   = "通过评论"
	ActionCommentReject    = "拒绝评论"
	ActionPlaylistCreate   = "创建歌单"
	ActionPlaylistDelete   = "删除歌单"
	ActionPlaylistAddTrack = "添加曲目到歌单"
)

// AddActivity 写入一条行为流水
func AddActivity(userID uint, action, itemType string, itemID uint) error {
	entry := models.ActivityLog{
		UserID:   userID,
		Action:   action,
		ItemType: itemType,
		ItemID:   itemID,
	}
	return db.DB.Create(&entry).Error
}

// AddActivityAsync 异步写入行为流水（在 goroutine 中调用）
func AddActivityAsync(userID uint, action, itemType string, itemID uint) {
	go func() {
		if err := AddActivity(userID, action, itemType, itemID); err != nil {
			log.Printf("写入行为流水失败 (user=%d action=%s): %v", userID, action, err)
		}
	}()
}

// ListActivity 查询用户最近的行为流水，按时间倒序
func ListActivity(userID uint) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := db.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(FetchLimit()).
		Find(&entries).Error
	return entries, err
}
