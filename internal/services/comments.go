package services

import (
	"errors"
	"fmt"
	"ispmedia/internal/db"
	"ispmedia/internal/models"
	"ispmedia/internal/utils"
	"log"
	"os"
	"strings"
	"time"
)

// 评论内容长度上限（去除首尾空白后的字符数）
const MaxCommentLength = 500

// 单次查询的最大返回条数，所有评论/曲目列表查询共用同一个上限
const DefaultFetchLimit = 50

var (
	ErrEmptyContent     = errors.New("评论内容不能为空")
	ErrContentTooLong   = errors.New("评论内容超过长度限制")
	ErrMissingAuthor    = errors.New("缺少评论作者")
	ErrMissingTrack     = errors.New("曲目不存在")
	ErrCommentNotFound  = errors.New("评论不存在")
	ErrAlreadyModerated = errors.New("评论已审核，不能重复操作")
	ErrNotTrackOwner    = errors.New("只有曲目作者可以审核评论")
	ErrBadDecision      = errors.New("无效的审核操作")
)

// Decision 审核动作
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// FetchLimit 返回列表查询条数上限，可通过 FETCH_LIMIT 环境变量覆盖
func FetchLimit() int {
	if v := utils.StringToInt(os.Getenv("FETCH_LIMIT")); v > 0 {
		return v
	}
	return DefaultFetchLimit
}

// SubmitComment 提交一条新评论，校验通过后落库，初始状态为 pending。
// 校验失败时不产生任何写入。
func SubmitComment(user *models.User, trackID uint, content string) (*models.Comment, error) {
	if user == nil || user.ID == 0 {
		return nil, ErrMissingAuthor
	}
	if trackID == 0 {
		return nil, ErrMissingTrack
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len([]rune(content)) > MaxCommentLength {
		return nil, ErrContentTooLong
	}

	// 确认曲目存在
	var track models.Track
	if err := db.DB.First(&track, trackID).Error; err != nil {
		return nil, ErrMissingTrack
	}

	comment := models.Comment{
		Cid:             utils.RandStringBytesMaskImpr(8),
		TrackID:         track.ID,
		UserID:          user.ID,
		UserDisplayName: user.Username,
		Content:         content,
		Status:          models.CommentStatusPending,
	}

	if err := db.DB.Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("创建评论失败: %w", err)
	}

	// 异步通知曲目作者有新评论待审核
	if track.UserID != user.ID {
		go notifyCommentPending(&track, &comment, user)
	}

	// 异步记录行为流水
	AddActivityAsync(user.ID, ActionCommentSubmit, "comment", comment.ID)

	// 推送 pending 订阅快照
	GetCommentFeed().Invalidate(track.ID, models.CommentStatusPending)

	return &comment, nil
}

// ListComments 按曲目和状态查询评论，按提交时间倒序（最新在前）。
// (track_id, status) 上有复合索引，排序直接交给查询层完成。
func ListComments(trackID uint, status models.CommentStatus) ([]models.Comment, error) {
	if trackID == 0 {
		return nil, ErrMissingTrack
	}
	if !status.Valid() {
		return nil, fmt.Errorf("无效的评论状态: %q", status)
	}

	var comments []models.Comment
	err := db.DB.Preload("User").
		Where("track_id = ? AND status = ?", trackID, status).
		Order("created_at DESC").
		Limit(FetchLimit()).
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("查询评论失败: %w", err)
	}
	return comments, nil
}

// CountComments 统计某曲目指定状态的评论数
func CountComments(trackID uint, status models.CommentStatus) int64 {
	var count int64
	db.DB.Model(&models.Comment{}).
		Where("track_id = ? AND status = ?", trackID, status).
		Count(&count)
	return count
}

// ModerateComment 审核评论：pending -> approved / rejected。
// 授权在写路径上强制执行：只有曲目作者（或管理员）可以审核。
// 状态迁移用条件更新保护，并发双审只有一方成功，另一方拿到 ErrAlreadyModerated。
func ModerateComment(moderator *models.User, cid string, decision Decision) (*models.Comment, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, ErrBadDecision
	}
	if moderator == nil || moderator.ID == 0 {
		return nil, ErrMissingAuthor
	}

	var comment models.Comment
	if err := db.DB.Preload("Track").Where("cid = ?", cid).First(&comment).Error; err != nil {
		return nil, ErrCommentNotFound
	}

	if comment.Track.UserID != moderator.ID && moderator.Role != "admin" {
		return nil, ErrNotTrackOwner
	}

	newStatus := models.CommentStatusApproved
	if decision == DecisionReject {
		newStatus = models.CommentStatusRejected
	}

	now := time.Now()
	res := db.DB.Model(&models.Comment{}).
		Where("id = ? AND status = ?", comment.ID, models.CommentStatusPending).
		Updates(map[string]interface{}{
			"status":       newStatus,
			"moderated_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("更新评论状态失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// 已被并发审核或状态不再是 pending
		return nil, ErrAlreadyModerated
	}

	comment.Status = newStatus
	comment.ModeratedAt = &now

	// 异步通知评论作者审核结果
	go notifyModerationResult(&comment, moderator)

	action := ActionCommentApprove
	if decision == DecisionReject {
		action = ActionCommentReject
	}
	AddActivityAsync(moderator.ID, action, "comment", comment.ID)

	// pending 集合与目标状态集合都发生了变化
	GetCommentFeed().Invalidate(comment.TrackID, models.CommentStatusPending, newStatus)

	return &comment, nil
}

// notifyCommentPending 给曲目作者写站内通知（新评论待审核）
func notifyCommentPending(track *models.Track, comment *models.Comment, author *models.User) {
	actorID := author.ID
	notification := models.Notification{
		UserID:    track.UserID,
		ActorID:   &actorID,
		Type:      models.NotificationTypeCommentPending,
		TrackID:   &track.ID,
		CommentID: &comment.ID,
		Reason:    fmt.Sprintf("%s 评论了你的曲目《%s》，等待审核", author.Username, track.Title),
	}
	if err := db.DB.Create(&notification).Error; err != nil {
		log.Printf("创建待审核通知失败 (comment=%d): %v", comment.ID, err)
		return
	}

	// 曲目作者配置了邮箱时补发邮件提醒
	var owner models.User
	if err := db.DB.First(&owner, track.UserID).Error; err == nil {
		GetMailService().SendCommentPendingEmail(owner.Email, author.Username, track.Title, comment.Content)
	}
}

// notifyModerationResult 给评论作者写站内通知（审核结果）
func notifyModerationResult(comment *models.Comment, moderator *models.User) {
	actorID := moderator.ID
	ntype := models.NotificationTypeCommentApproved
	reason := fmt.Sprintf("你在《%s》下的评论已通过审核", comment.Track.Title)
	if comment.Status == models.CommentStatusRejected {
		ntype = models.NotificationTypeCommentRejected
		reason = fmt.Sprintf("你在《%s》下的评论未通过审核", comment.Track.Title)
	}

	notification := models.Notification{
		UserID:    comment.UserID,
		ActorID:   &actorID,
		Type:      ntype,
		TrackID:   &comment.TrackID,
		CommentID: &comment.ID,
		Reason:    reason,
	}
	if err := db.DB.Create(&notification).Error; err != nil {
		log.Printf("创建审核结果通知失败 (comment=%d): %v", comment.ID, err)
	}
}
