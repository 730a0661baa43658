package http

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/gin-gonic/gin"

	"github.com/layer-3/chaintalk/chat"
	"github.com/layer-3/chaintalk/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, hub *chat.Hub, chainConnected func() bool, logger watermill.LoggerAdapter) *gin.Engine {
	router := gin.Default()

	handlers := NewHandlers(authService, hub.Registry(), chainConnected)
	ws := NewWebsocketHandler(hub, logger)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/login", handlers.Login)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
	}

	// Room discovery
	router.GET("/rooms", handlers.Rooms)
	router.GET("/rooms/:name", handlers.RoomInfo)

	router.GET("/ws", ws.Serve)
	router.GET("/health", handlers.Health)

	return router
}
