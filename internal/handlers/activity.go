package handlers

import (
	"ispmedia/internal/middleware"
	"ispmedia/internal/models"
	"ispmedia/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct{}

func NewActivityHandler() *ActivityHandler {
	return &ActivityHandler{}
}

// List 当前用户的行为流水
func (h *ActivityHandler) List(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	entries, err := services.ListActivity(user.ID)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "查询失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"activities": entries})
}
