package api

import (
	"Mallchat/internal/api/middleware"
	"Mallchat/internal/pkg/consts"
	"Mallchat/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	// WebSocket 入口，鉴权走连接内的 token
	r.GET("/websocket", group.WsHandler.Connect)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		wxGroup := apiGroup.Group("/wx")
		{
			wxGroup.GET("/portal", group.WxHandler.CheckPortal)
			wxGroup.POST("/portal", group.WxHandler.Portal)
			wxGroup.GET("/auth", group.WxHandler.AuthRedirect)
			wxGroup.POST("/refresh", group.WxHandler.RefreshToken)
		}

		chatGroup := apiGroup.Group("/chat")
		{
			publicGroup := chatGroup.Group("/public")
			publicGroup.Use(middleware.AuthOptionalMiddleware())
			{
				publicGroup.GET("/msg/page", group.ChatHandler.GetMsgPage)
				publicGroup.GET("/member/page", group.ChatHandler.GetOnlinePage)
			}

			authGroup := chatGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/msg", group.ChatHandler.SendMsg)
				authGroup.GET("/msg/:msg_id", group.ChatHandler.GetMsg)
				authGroup.PUT("/msg/recall", group.ChatHandler.RecallMsg)
				authGroup.PUT("/msg/mark", group.ChatHandler.SetMsgMark)
			}
		}

		roomGroup := apiGroup.Group("/room")
		roomGroup.Use(middleware.AuthMiddleware())
		{
			roomGroup.GET("/contact/page", group.RoomHandler.GetContactPage)
			roomGroup.POST("/group", group.RoomHandler.CreateGroup)
			roomGroup.GET("/group/member", group.RoomHandler.GetMembers)
			roomGroup.POST("/group/member", group.RoomHandler.Invite)
			roomGroup.DELETE("/group/member", group.RoomHandler.RemoveMember)
			roomGroup.DELETE("/group/member/exit", group.RoomHandler.Exit)
		}

		friendGroup := apiGroup.Group("/friend")
		friendGroup.Use(middleware.AuthMiddleware())
		{
			friendGroup.GET("/page", group.FriendHandler.GetFriendPage)
			friendGroup.DELETE("", group.FriendHandler.Delete)
			friendGroup.POST("/apply", group.FriendHandler.Apply)
			friendGroup.PUT("/apply", group.FriendHandler.Approve)
			friendGroup.GET("/apply/page", group.FriendHandler.GetApplyPage)
			friendGroup.GET("/apply/unread", group.FriendHandler.GetUnread)
		}

		userGroup := apiGroup.Group("/user")
		{
			userGroup.POST("/summary/info", group.UserHandler.GetSummaryInfo)

			authGroup := userGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.GET("/info", group.UserHandler.GetUserInfo)
				authGroup.PUT("/name", group.UserHandler.ModifyName)
				authGroup.GET("/badges", group.UserHandler.ListBadges)
				authGroup.PUT("/badge", group.UserHandler.WearBadge)
			}
		}

		ossGroup := apiGroup.Group("/oss")
		ossGroup.Use(middleware.AuthMiddleware())
		{
			ossGroup.GET("/upload/url", group.OssHandler.GetUploadURL)
		}

		// 需要登录 & 拥有 admin 角色
		adminGroup := apiGroup.Group("/admin")
		adminGroup.Use(middleware.AuthMiddleware(), middleware.CheckRoles(consts.RoleAdmin))
		{
			adminGroup.POST("/sensitive/reload", group.AdminHandler.ReloadSensitiveWords)
			adminGroup.POST("/role", group.AdminHandler.GrantRole)
			adminGroup.DELETE("/role", group.AdminHandler.RevokeRole)
		}
	}

	return r
}
