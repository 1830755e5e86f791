// routes/emergency.go
package routes

import (
	"eventops/controllers"

	"github.com/gin-gonic/gin"
)

// SetupEmergencyRoutes configures per-event emergency routes
func SetupEmergencyRoutes(router *gin.RouterGroup, emergencyController *controllers.EmergencyController) {
	events := router.Group("/events/:eventId")
	{
		emergency := events.Group("/emergency")
		emergency.GET("", emergencyController.GetEmergencyState)
		emergency.POST("", emergencyController.ActivateEmergency)
		emergency.DELETE("", emergencyController.DeactivateEmergency)
		emergency.POST("/blocked-categories", emergencyController.BlockCategory)
		emergency.GET("/export", emergencyController.ExportSnapshot)

		events.POST("/alerts", emergencyController.BroadcastAlert)
	}

	gates := router.Group("/gates")
	{
		gates.POST("/:gateId/close", emergencyController.CloseGate)
	}
}
