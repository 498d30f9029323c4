package handlers

import (
	"ispmedia/internal/db"
	"ispmedia/internal/models"
	"ispmedia/internal/services"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type LiveHandler struct{}

func NewLiveHandler() *LiveHandler {
	return &LiveHandler{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 前端与后端分离部署，跨域交给反向代理约束
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// CommentsLive 评论实时订阅：GET /api/tracks/:tid/comments/live?status=approved
// 每当该曲目对应状态的评论集合变化，推送一次完整快照（JSON 数组）。
// pending/rejected 的订阅只对曲目作者开放。
func (h *LiveHandler) CommentsLive(c *gin.Context) {
	tid := c.Param("tid")

	var track models.Track
	if err := db.DB.Where("tid = ?", tid).First(&track).Error; err != nil {
		Fail(c, http.StatusNotFound, "曲目不存在")
		return
	}

	status := models.CommentStatus(c.DefaultQuery("status", string(models.CommentStatusApproved)))
	if !status.Valid() {
		Fail(c, http.StatusBadRequest, "无效的评论状态")
		return
	}

	if status != models.CommentStatusApproved {
		user := CurrentUser(c)
		if user == nil {
			Fail(c, http.StatusUnauthorized, "请先登录")
			return
		}
		if track.UserID != user.ID && user.Role != "admin" {
			Fail(c, http.StatusForbidden, "只有曲目作者可以订阅审核队列")
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket 升级失败: %v", err)
		return
	}
	defer conn.Close()

	// 订阅回调和写循环之间用带缓冲的通道衔接；
	// 通道满时丢掉积压的旧快照，只保最新的一份。
	snapshots := make(chan []models.Comment, 4)
	unsubscribe := services.GetCommentFeed().Subscribe(track.ID, status, func(comments []models.Comment) {
		for {
			select {
			case snapshots <- comments:
				return
			default:
				select {
				case <-snapshots:
				default:
				}
			}
		}
	})
	defer unsubscribe()

	// 读循环只用于感知客户端断开
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case comments := <-snapshots:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(gin.H{"comments": toViews(comments)}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
