package handlers

import (
	"ispmedia/internal/db"
	"ispmedia/internal/middleware"
	"ispmedia/internal/models"
	"ispmedia/internal/services"
	"ispmedia/internal/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct{}

func NewCommentHandler() *CommentHandler {
	return &CommentHandler{}
}

type createCommentRequest struct {
	TrackID uint   `json:"track_id"`
	Tid     string `json:"tid"` // 也接受对外短 ID
	Content string `json:"content"`
}

// commentView API 响应里的评论视图，附带渲染后的 HTML
type commentView struct {
	models.Comment
	ContentHTML string `json:"content_html"`
}

func toViews(comments []models.Comment) []commentView {
	views := make([]commentView, len(comments))
	for i, com := range comments {
		views[i] = commentView{
			Comment:     com,
			ContentHTML: utils.RenderMarkdown(com.Content),
		}
	}
	return views
}

// Create 提交评论，新评论进入 pending 等待曲目作者审核
func (h *CommentHandler) Create(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "请求格式错误")
		return
	}

	// 请求体里两个 ID 字段都没给是格式问题，不同于给了但查不到的曲目
	if req.TrackID == 0 && req.Tid == "" {
		Fail(c, http.StatusBadRequest, "缺少 track_id 参数")
		return
	}

	trackID := req.TrackID
	if trackID == 0 {
		var track models.Track
		if err := db.DB.Select("id").Where("tid = ?", req.Tid).First(&track).Error; err == nil {
			trackID = track.ID
		}
	}

	comment, err := services.SubmitComment(user, trackID, req.Content)
	if err != nil {
		FailCommentErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// List 查询评论：GET /api/comments?track_id=...&status=approved
// status 缺省为 approved；pending/rejected 只有曲目作者可以查看。
func (h *CommentHandler) List(c *gin.Context) {
	trackID := utils.StringToUint(c.Query("track_id"))
	if trackID == 0 {
		Fail(c, http.StatusBadRequest, "缺少 track_id 参数")
		return
	}

	status := models.CommentStatus(c.DefaultQuery("status", string(models.CommentStatusApproved)))
	if !status.Valid() {
		Fail(c, http.StatusBadRequest, "无效的评论状态")
		return
	}

	// 非公开状态的评论列表只对曲目作者开放
	if status != models.CommentStatusApproved {
		user := CurrentUser(c)
		if user == nil {
			Fail(c, http.StatusUnauthorized, "请先登录")
			return
		}
		var track models.Track
		if err := db.DB.Select("id, user_id").First(&track, trackID).Error; err != nil {
			Fail(c, http.StatusNotFound, "曲目不存在")
			return
		}
		if track.UserID != user.ID && user.Role != "admin" {
			Fail(c, http.StatusForbidden, "只有曲目作者可以查看审核队列")
			return
		}
	}

	comments, err := services.ListComments(trackID, status)
	if err != nil {
		FailCommentErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": toViews(comments)})
}

// Approve 审核通过：pending -> approved
func (h *CommentHandler) Approve(c *gin.Context) {
	h.moderate(c, services.DecisionApprove)
}

// Reject 审核拒绝：pending -> rejected
func (h *CommentHandler) Reject(c *gin.Context) {
	h.moderate(c, services.DecisionReject)
}

func (h *CommentHandler) moderate(c *gin.Context, decision services.Decision) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	cid := c.Param("cid")

	comment, err := services.ModerateComment(user, cid, decision)
	if err != nil {
		FailCommentErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comment": comment})
}
