package controllers

import (
	"context"
	"eventops/middleware"
	"eventops/models"
	"eventops/services"
	"eventops/utils"
	"eventops/websocket"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type WebSocketController struct {
	hub              *websocket.Hub
	emergencyService *services.EmergencyService
	shutdownService  *services.ShutdownService
}

func NewWebSocketController(hub *websocket.Hub, emergencyService *services.EmergencyService, shutdownService *services.ShutdownService) *WebSocketController {
	return &WebSocketController{
		hub:              hub,
		emergencyService: emergencyService,
		shutdownService:  shutdownService,
	}
}

// HandleWebSocket upgrades an authenticated observer. System-wide updates are
// always delivered; ?eventId= adds the updates of one event. The current
// state is sent first.
func (wsc *WebSocketController) HandleWebSocket(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication token is required")
		return
	}

	eventID := c.Query("eventId")
	if eventID != "" {
		if _, err := wsc.emergencyService.GetEmergencyState(c.Request.Context(), eventID); err != nil {
			utils.HandleServiceError(c, err, "Failed to load event")
			return
		}
	}

	conn, err := websocket.Upgrade(c.Writer, c.Request)
	if err != nil {
		logrus.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(conn, wsc.hub, c.Request, identity, eventID)
	client.Subscribe(wsc.snapshot(eventID))

	go client.WritePump()
	go client.ReadPump()
}

// snapshot reads the state a new observer starts from. Read failures only
// skip the snapshot; later updates still arrive.
func (wsc *WebSocketController) snapshot(eventID string) websocket.SnapshotFunc {
	return func() (*models.WSMessage, *models.WSMessage) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var systemMsg, eventMsg *models.WSMessage

		status, err := wsc.shutdownService.GetSystemStatus(ctx)
		if err != nil {
			logrus.WithError(err).Warn("Failed to read system status for realtime snapshot")
		} else {
			systemMsg = &models.WSMessage{
				Type:      models.WSTypeSystemStatus,
				Data:      status,
				Timestamp: status.UpdatedAt,
			}
		}

		if eventID != "" {
			state, err := wsc.emergencyService.GetEmergencyState(ctx, eventID)
			if err != nil {
				logrus.WithError(err).WithField("eventId", eventID).Warn("Failed to read emergency state for realtime snapshot")
			} else {
				eventMsg = &models.WSMessage{
					Type:      models.WSTypeSnapshot,
					EventID:   eventID,
					Data:      state,
					Timestamp: state.ActivatedAt,
				}
			}
		}

		return systemMsg, eventMsg
	}
}
