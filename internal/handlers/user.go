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
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Profile 用户公开主页：资料 + 公开曲目
func (h *UserHandler) Profile(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var user models.User
	if err := db.DB.First(&user, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "用户不存在")
		return
	}

	var tracks []models.Track
	db.DB.Preload("Genre").
		Where("user_id = ? AND is_public = ?", user.ID, true).
		Order("created_at DESC").
		Limit(services.FetchLimit()).
		Find(&tracks)

	fillCommentCounts(tracks)

	var playlists []models.Playlist
	db.DB.Where("user_id = ? AND is_public = ?", user.ID, true).
		Order("updated_at DESC").
		Find(&playlists)

	c.JSON(http.StatusOK, gin.H{
		"user":      user,
		"tracks":    tracks,
		"playlists": playlists,
	})
}

type settingsRequest struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
}

// UpdateSettings 修改个人资料
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "请求格式错误")
		return
	}

	updates := map[string]interface{}{}
	if name := strings.TrimSpace(req.Username); name != "" {
		updates["username"] = name
	}
	if req.Avatar != "" {
		updates["avatar"] = req.Avatar
	}
	if req.Bio != "" {
		updates["bio"] = req.Bio
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{"user": user})
		return
	}

	if err := db.DB.Model(user).Updates(updates).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "保存失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
