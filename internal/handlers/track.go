package handlers

import (
	"context"
	"ispmedia/internal/db"
	"ispmedia/internal/middleware"
	"ispmedia/internal/models"
	"ispmedia/internal/services"
	"ispmedia/internal/utils"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrackHandler struct{}

func NewTrackHandler() *TrackHandler {
	return &TrackHandler{}
}

// 允许上传的音频类型
var allowedAudioTypes = map[string]bool{
	"audio/mpeg": true,
	"audio/mp3":  true,
	"audio/wav":  true,
	"audio/ogg":  true,
	"audio/flac": true,
	"audio/aac":  true,
	"audio/mp4":  true,
}

// fillCommentCounts 批量填充曲目的已审核评论数量
func fillCommentCounts(tracks []models.Track) {
	if len(tracks) == 0 {
		return
	}

	trackIDs := make([]uint, len(tracks))
	for i, t := range tracks {
		trackIDs[i] = t.ID
	}

	// 批量查询评论数量
	type CountResult struct {
		TrackID uint
		Count   int
	}
	var results []CountResult
	db.DB.Model(&models.Comment{}).
		Select("track_id, COUNT(*) as count").
		Where("track_id IN ? AND status = ?", trackIDs, models.CommentStatusApproved).
		Group("track_id").
		Scan(&results)

	countMap := make(map[uint]int)
	for _, r := range results {
		countMap[r.TrackID] = r.Count
	}

	for i := range tracks {
		tracks[i].CommentCount = countMap[tracks[i].ID]
	}
}

// Upload 上传曲目：multipart 表单，audio 字段必填，cover 可选
func (h *TrackHandler) Upload(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		Fail(c, http.StatusBadRequest, "曲目标题不能为空")
		return
	}

	artist := strings.TrimSpace(c.PostForm("artist"))
	if artist == "" {
		artist = user.Username
	}

	genreID := utils.StringToUint(c.PostForm("genre_id"))
	if genreID == 0 {
		genreID = 1
	}

	audioFile, audioHeader, err := c.Request.FormFile("audio")
	if err != nil {
		Fail(c, http.StatusBadRequest, "缺少音频文件")
		return
	}
	defer audioFile.Close()

	contentType := audioHeader.Header.Get("Content-Type")
	if !allowedAudioTypes[contentType] {
		Fail(c, http.StatusBadRequest, "不支持的音频格式")
		return
	}

	storage := services.GetAudioStorage()
	audioKey := uuid.NewString() + filepath.Ext(audioHeader.Filename)
	if err := storage.Upload(c.Request.Context(), audioKey, audioFile, audioHeader.Size, contentType); err != nil {
		Fail(c, http.StatusInternalServerError, "音频上传失败")
		return
	}

	// 封面可选，失败不阻断上传
	coverKey := ""
	if coverFile, coverHeader, err := c.Request.FormFile("cover"); err == nil {
		defer coverFile.Close()
		key := uuid.NewString() + filepath.Ext(coverHeader.Filename)
		if err := storage.Upload(c.Request.Context(), key, coverFile, coverHeader.Size, coverHeader.Header.Get("Content-Type")); err == nil {
			coverKey = key
		}
	}

	track := models.Track{
		Tid:         utils.RandStringBytesMaskImpr(8),
		UserID:      user.ID,
		GenreID:     genreID,
		Title:       title,
		Artist:      artist,
		Description: c.PostForm("description"),
		AudioKey:    audioKey,
		CoverKey:    coverKey,
		ContentType: contentType,
		Size:        audioHeader.Size,
		IsPublic:    c.PostForm("is_public") != "false",
	}

	if err := db.DB.Create(&track).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "曲目保存失败")
		return
	}

	services.AddActivityAsync(user.ID, services.ActionTrackUpload, "track", track.ID)

	// 公开列表缓存失效
	utils.GetCache().Delete("track:public:list")

	c.JSON(http.StatusCreated, gin.H{"track": track})
}

// List 公开曲目列表，带本地缓存
func (h *TrackHandler) List(c *gin.Context) {
	const cacheKey = "track:public:list"
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if tracks, ok := cached.([]models.Track); ok {
			c.JSON(http.StatusOK, gin.H{"tracks": tracks})
			return
		}
	}

	var tracks []models.Track
	db.DB.Preload("User").Preload("Genre").
		Where("is_public = ?", true).
		Order("created_at DESC").
		Limit(services.FetchLimit()).
		Find(&tracks)

	fillCommentCounts(tracks)

	// 写入缓存，有效期 1 分钟
	utils.GetCache().Set(cacheKey, tracks, 1*time.Minute)

	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

// ListByGenre 按流派浏览公开曲目
func (h *TrackHandler) ListByGenre(c *gin.Context) {
	name := c.Param("name")

	var genre models.Genre
	if err := db.DB.Where("name = ?", name).First(&genre).Error; err != nil {
		Fail(c, http.StatusNotFound, "流派不存在")
		return
	}

	var tracks []models.Track
	db.DB.Preload("User").Preload("Genre").
		Where("genre_id = ? AND is_public = ?", genre.ID, true).
		Order("created_at DESC").
		Limit(services.FetchLimit()).
		Find(&tracks)

	fillCommentCounts(tracks)

	c.JSON(http.StatusOK, gin.H{"genre": genre, "tracks": tracks})
}

// Detail 曲目详情，访问即计一次播放
func (h *TrackHandler) Detail(c *gin.Context) {
	tid := c.Param("tid")

	var track models.Track
	if err := db.DB.Preload("User").Preload("Genre").Where("tid = ?", tid).First(&track).Error; err != nil {
		Fail(c, http.StatusNotFound, "曲目不存在")
		return
	}

	user := CurrentUser(c)
	if !track.IsPublic && (user == nil || user.ID != track.UserID) {
		Fail(c, http.StatusNotFound, "曲目不存在")
		return
	}

	// 增加播放量
	db.DB.Model(&track).UpdateColumn("plays", gorm.Expr("plays + 1"))
	track.Plays++

	track.CommentCount = int(services.CountComments(track.ID, models.CommentStatusApproved))

	c.JSON(http.StatusOK, gin.H{
		"track":            track,
		"description_html": utils.RenderMarkdown(track.Description),
	})
}

// Stream 获取限时播放链接
func (h *TrackHandler) Stream(c *gin.Context) {
	tid := c.Param("tid")

	var track models.Track
	if err := db.DB.Where("tid = ?", tid).First(&track).Error; err != nil {
		Fail(c, http.StatusNotFound, "曲目不存在")
		return
	}

	user := CurrentUser(c)
	if !track.IsPublic && (user == nil || user.ID != track.UserID) {
		Fail(c, http.StatusNotFound, "曲目不存在")
		return
	}

	streamURL, err := services.GetAudioStorage().PresignedURL(c.Request.Context(), track.AudioKey, 1*time.Hour)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "生成播放链接失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": streamURL, "expires_in": 3600})
}

// Delete 删除曲目（仅上传者本人），同时清理对象存储
func (h *TrackHandler) Delete(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	tid := c.Param("tid")

	var track models.Track
	if err := db.DB.Where("tid = ?", tid).First(&track).Error; err != nil {
		Fail(c, http.StatusNotFound, "曲目不存在")
		return
	}

	if track.UserID != user.ID && user.Role != "admin" {
		Fail(c, http.StatusForbidden, "只能删除自己的曲目")
		return
	}

	if err := db.DB.Delete(&track).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "删除失败")
		return
	}

	// 异步清理对象存储里的文件
	go func(audioKey, coverKey string) {
		ctx := context.Background()
		_ = services.GetAudioStorage().Remove(ctx, audioKey)
		_ = services.GetAudioStorage().Remove(ctx, coverKey)
	}(track.AudioKey, track.CoverKey)

	services.AddActivityAsync(user.ID, services.ActionTrackDelete, "track", track.ID)
	utils.GetCache().Delete("track:public:list")

	c.Status(http.StatusNoContent)
}
