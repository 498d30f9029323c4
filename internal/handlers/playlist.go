package handlers

import (
	"ispmedia/internal/db"
	"ispmedia/internal/middleware"
	"ispmedia/internal/models"
	"ispmedia/internal/services"
	"ispmedia/internal/utils"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PlaylistHandler struct{}

func NewPlaylistHandler() *PlaylistHandler {
	return &PlaylistHandler{}
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

// Create 创建歌单
func (h *PlaylistHandler) Create(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	var req playlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "请求格式错误")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		Fail(c, http.StatusBadRequest, "歌单名称不能为空")
		return
	}

	playlist := models.Playlist{
		Plid:        utils.RandStringBytesMaskImpr(8),
		UserID:      user.ID,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}

	if err := db.DB.Create(&playlist).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "创建歌单失败")
		return
	}

	services.AddActivityAsync(user.ID, services.ActionPlaylistCreate, "playlist", playlist.ID)

	c.JSON(http.StatusCreated, gin.H{"playlist": playlist})
}

// List 当前用户的歌单列表
func (h *PlaylistHandler) List(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	var playlists []models.Playlist
	db.DB.Where("user_id = ?", user.ID).
		Order("updated_at DESC").
		Find(&playlists)

	// 批量填充曲目数
	if len(playlists) > 0 {
		ids := make([]uint, len(playlists))
		for i, p := range playlists {
			ids[i] = p.ID
		}
		type CountResult struct {
			PlaylistID uint
			Count      int
		}
		var results []CountResult
		db.DB.Model(&models.PlaylistTrack{}).
			Select("playlist_id, COUNT(*) as count").
			Where("playlist_id IN ?", ids).
			Group("playlist_id").
			Scan(&results)
		countMap := make(map[uint]int)
		for _, r := range results {
			countMap[r.PlaylistID] = r.Count
		}
		for i := range playlists {
			playlists[i].TrackCount = countMap[playlists[i].ID]
		}
	}

	c.JSON(http.StatusOK, gin.H{"playlists": playlists})
}

// Detail 歌单详情，含按 Position 排序的曲目
func (h *PlaylistHandler) Detail(c *gin.Context) {
	plid := c.Param("plid")

	var playlist models.Playlist
	if err := db.DB.Preload("User").Where("plid = ?", plid).First(&playlist).Error; err != nil {
		Fail(c, http.StatusNotFound, "歌单不存在")
		return
	}

	user := CurrentUser(c)
	if !playlist.IsPublic && (user == nil || user.ID != playlist.UserID) {
		Fail(c, http.StatusNotFound, "歌单不存在")
		return
	}

	var entries []models.PlaylistTrack
	db.DB.Preload("Track").Preload("Track.User").Preload("Track.Genre").
		Where("playlist_id = ?", playlist.ID).
		Order("position ASC").
		Find(&entries)

	playlist.TrackCount = len(entries)

	c.JSON(http.StatusOK, gin.H{"playlist": playlist, "tracks": entries})
}

// AddTrack 往歌单追加曲目（追加到末尾）
func (h *PlaylistHandler) AddTrack(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	playlist, ok := h.ownedPlaylist(c, user)
	if !ok {
		return
	}

	var req struct {
		Tid string `json:"tid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Tid == "" {
		Fail(c, http.StatusBadRequest, "缺少曲目 ID")
		return
	}

	var track models.Track
	if err := db.DB.Where("tid = ?", req.Tid).First(&track).Error; err != nil {
		Fail(c, http.StatusNotFound, "曲目不存在")
		return
	}

	// 已在歌单中则直接返回
	var existing models.PlaylistTrack
	if err := db.DB.Where("playlist_id = ? AND track_id = ?", playlist.ID, track.ID).First(&existing).Error; err == nil {
		c.JSON(http.StatusOK, gin.H{"entry": existing})
		return
	}

	// 追加到末尾：Position 取当前最大值 +1
	entry := models.PlaylistTrack{
		PlaylistID: playlist.ID,
		TrackID:    track.ID,
	}
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var maxPos *int
		if err := tx.Model(&models.PlaylistTrack{}).
			Select("MAX(position)").
			Where("playlist_id = ?", playlist.ID).
			Scan(&maxPos).Error; err != nil {
			return err
		}
		if maxPos != nil {
			entry.Position = *maxPos + 1
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		Fail(c, http.StatusInternalServerError, "添加曲目失败")
		return
	}

	services.AddActivityAsync(user.ID, services.ActionPlaylistAddTrack, "playlist", playlist.ID)

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// RemoveTrack 从歌单移除曲目
func (h *PlaylistHandler) RemoveTrack(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	playlist, ok := h.ownedPlaylist(c, user)
	if !ok {
		return
	}

	var track models.Track
	if err := db.DB.Where("tid = ?", c.Param("tid")).First(&track).Error; err != nil {
		Fail(c, http.StatusNotFound, "曲目不存在")
		return
	}

	res := db.DB.Where("playlist_id = ? AND track_id = ?", playlist.ID, track.ID).
		Delete(&models.PlaylistTrack{})
	if res.RowsAffected == 0 {
		Fail(c, http.StatusNotFound, "曲目不在歌单中")
		return
	}

	c.Status(http.StatusNoContent)
}

// Delete 删除歌单及其曲目关联
func (h *PlaylistHandler) Delete(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	playlist, ok := h.ownedPlaylist(c, user)
	if !ok {
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", playlist.ID).Delete(&models.PlaylistTrack{}).Error; err != nil {
			return err
		}
		return tx.Delete(playlist).Error
	})
	if err != nil {
		Fail(c, http.StatusInternalServerError, "删除歌单失败")
		return
	}

	services.AddActivityAsync(user.ID, services.ActionPlaylistDelete, "playlist", playlist.ID)

	c.Status(http.StatusNoContent)
}

// ownedPlaylist 加载 :plid 指定的歌单并校验归属
func (h *PlaylistHandler) ownedPlaylist(c *gin.Context, user *models.User) (*models.Playlist, bool) {
	var playlist models.Playlist
	if err := db.DB.Where("plid = ?", c.Param("plid")).First(&playlist).Error; err != nil {
		Fail(c, http.StatusNotFound, "歌单不存在")
		return nil, false
	}
	if playlist.UserID != user.ID {
		Fail(c, http.StatusForbidden, "只能操作自己的歌单")
		return nil, false
	}
	return &playlist, true
}
