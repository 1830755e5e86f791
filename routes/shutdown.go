// routes/shutdown.go
package routes

import (
	"eventops/controllers"

	"github.com/gin-gonic/gin"
)

// SetupShutdownRoutes configures the administrator-only shutdown protocol and
// maintenance routes. limiter throttles the shutdown steps per caller.
func SetupShutdownRoutes(admin *gin.RouterGroup, shutdownController *controllers.ShutdownController, limiter gin.HandlerFunc) {
	shutdown := admin.Group("/shutdown")
	shutdown.Use(limiter)
	{
		shutdown.POST("/tokens", shutdownController.IssueToken)
		shutdown.POST("/verify", shutdownController.VerifyCredentials)
		shutdown.POST("/execute", shutdownController.ExecuteShutdown)
	}

	admin.PUT("/system/maintenance", shutdownController.SetMaintenanceMode)
}

// SetupSystemRoutes configures the read-only system status route
func SetupSystemRoutes(router *gin.RouterGroup, shutdownController *controllers.ShutdownController) {
	router.GET("/system/status", shutdownController.GetSystemStatus)
}
