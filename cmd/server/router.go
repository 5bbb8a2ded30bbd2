package server

import (
	"github.com/gin-gonic/gin"
	"github.com/thereayou/zylo/internal/handlers"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Messages  *handlers.HTTPMessageHandler
	Rooms     *handlers.RoomHandler
	Users     *handlers.UserHandler
	Files     *handlers.FileHandler
	WebSocket *handlers.WebSocketHandler
}

func APIEndpoints(r *gin.Engine, h Handlers, requireAuth, wsAuth gin.HandlerFunc) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", requireAuth, h.Auth.Logout)
	}

	r.GET("/ws", wsAuth, h.WebSocket.HandleWebSocket)
	r.GET("/files/:name", h.Files.Serve)

	public := r.Group("/api")
	{
		public.GET("/messages", h.Messages.GetPublicMessages)
		public.GET("/stats", h.Messages.GetStats)
		public.GET("/users/online", h.Users.GetOnlineUsers)
		public.GET("/users/:username", h.Users.GetUser)
	}

	api := r.Group("/api", requireAuth)
	{
		api.GET("/me", h.Users.GetMe)
		api.GET("/dm", h.Messages.GetConversation)
		api.POST("/files", h.Files.Upload)

		api.POST("/groups", h.Rooms.CreateRoom)
		api.GET("/groups", h.Rooms.GetMyRooms)
		api.GET("/groups/:id", h.Rooms.GetRoom)
		api.GET("/groups/:id/members", h.Rooms.GetRoomMembers)
		api.GET("/groups/:id/messages", h.Messages.GetGroupMessages)
		api.POST("/groups/:id/join", h.Rooms.JoinRoom)
		api.POST("/groups/:id/leave", h.Rooms.LeaveRoom)
	}
}
