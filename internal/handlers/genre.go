package handlers

import (
	"ispmedia/internal/db"
	"ispmedia/internal/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

type GenreHandler struct{}

func NewGenreHandler() *GenreHandler {
	return &GenreHandler{}
}

// ListGenres 所有流派列表
func (h *GenreHandler) ListGenres(c *gin.Context) {
	var genres []models.Genre
	db.DB.Order("id ASC").Find(&genres)

	c.JSON(http.StatusOK, gin.H{"genres": genres})
}
