package router

import (
	"ispmedia/internal/handlers"
	"ispmedia/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// Handlers
	authHandler := handlers.NewAuthHandler()
	trackHandler := handlers.NewTrackHandler()
	commentHandler := handlers.NewCommentHandler()
	liveHandler := handlers.NewLiveHandler()
	playlistHandler := handlers.NewPlaylistHandler()
	notificationHandler := handlers.NewNotificationHandler()
	activityHandler := handlers.NewActivityHandler()
	genreHandler := handlers.NewGenreHandler()
	userHandler := handlers.NewUserHandler()

	api := r.Group("/api")

	// 认证 (Auth)
	api.POST("/auth/signup", authHandler.Signup) // 注册
	api.POST("/auth/login", authHandler.Login)   // 登录
	api.POST("/auth/logout", authHandler.Logout) // 退出登录
	api.GET("/auth/me", authHandler.Me)          // 当前用户

	// 公共路由 (Public Routes)
	api.GET("/tracks", trackHandler.List)                        // 公开曲目列表
	api.GET("/tracks/:tid", trackHandler.Detail)                 // 曲目详情
	api.GET("/tracks/:tid/stream", trackHandler.Stream)          // 限时播放链接
	api.GET("/tracks/:tid/comments/live", liveHandler.CommentsLive) // 评论实时订阅 (WebSocket)
	api.GET("/comments", commentHandler.List)                    // 评论列表（按曲目+状态）
	api.GET("/genres", genreHandler.ListGenres)                  // 流派列表
	api.GET("/genres/:name/tracks", trackHandler.ListByGenre)    // 按流派浏览
	api.GET("/users/:id", userHandler.Profile)                   // 用户主页
	api.GET("/playlists/:plid", playlistHandler.Detail)          // 歌单详情（公开或本人）

	// 受保护路由 (Protected Routes)
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/tracks", trackHandler.Upload)       // 上传曲目
		authorized.DELETE("/tracks/:tid", trackHandler.Delete) // 删除曲目

		authorized.POST("/comments", commentHandler.Create)              // 提交评论
		authorized.POST("/comments/:cid/approve", commentHandler.Approve) // 审核通过
		authorized.POST("/comments/:cid/reject", commentHandler.Reject)   // 审核拒绝

		authorized.POST("/playlists", playlistHandler.Create)                    // 创建歌单
		authorized.GET("/playlists", playlistHandler.List)                       // 我的歌单
		authorized.POST("/playlists/:plid/tracks", playlistHandler.AddTrack)     // 添加曲目
		authorized.DELETE("/playlists/:plid/tracks/:tid", playlistHandler.RemoveTrack) // 移除曲目
		authorized.DELETE("/playlists/:plid", playlistHandler.Delete)            // 删除歌单

		authorized.GET("/notifications", notificationHandler.List)              // 我的通知
		authorized.POST("/notifications/:id/read", notificationHandler.Read)    // 标记单条通知为已读
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)     // 删除单条通知
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll) // 全部标记为已读

		authorized.GET("/activity", activityHandler.List)        // 我的行为流水
		authorized.POST("/settings", userHandler.UpdateSettings) // 修改资料
	}
}
