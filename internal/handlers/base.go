package handlers

import (
	"errors"
	"ispmedia/internal/middleware"
	"ispmedia/internal/models"
	"ispmedia/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CurrentUser 从上下文取当前登录用户，未登录返回 nil
func CurrentUser(c *gin.Context) *models.User {
	if user, exists := c.Get(middleware.CheckUserKey); exists && user != nil {
		return user.(*models.User)
	}
	return nil
}

// Fail 统一的 JSON 错误响应
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// FailCommentErr 把评论服务的哨兵错误翻译成 HTTP 状态码
func FailCommentErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrContentTooLong),
		errors.Is(err, services.ErrMissingAuthor),
		errors.Is(err, services.ErrBadDecision):
		Fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrMissingTrack),
		errors.Is(err, services.ErrCommentNotFound):
		Fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrNotTrackOwner):
		Fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrAlreadyModerated):
		Fail(c, http.StatusConflict, err.Error())
	default:
		Fail(c, http.StatusInternalServerError, "服务器内部错误")
	}
}
