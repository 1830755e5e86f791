// routes/websocket.go
package routes

import (
	"eventops/controllers"
	"eventops/middleware"

	"github.com/gin-gonic/gin"
)

// SetupWebSocketRoutes configures the realtime observer endpoint. Browsers
// cannot set headers on the upgrade, so the token may come as ?token=.
func SetupWebSocketRoutes(router *gin.Engine, wsController *controllers.WebSocketController, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/ws", authMiddleware.RequireAuth(), wsController.HandleWebSocket)
}
