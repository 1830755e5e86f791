// models/websocket.go
package models

import (
	"time"
)

// WebSocket / realtime message types
const (
	WSTypeEmergencyState = "emergency_state"
	WSTypeSystemStatus   = "system_status"
	WSTypeGateStatus     = "gate_status"
	WSTypeShutdownAlert  = "shutdown_alert"
	WSTypeSnapshot       = "snapshot"
	WSTypePing           = "ping"
	WSTypePong           = "pong"
	WSTypeError          = "error"
)

// WSMessage is the envelope pushed to every realtime observer.
// EventID is empty for global (system-wide) messages.
type WSMessage struct {
	Type      string      `json:"type"`
	EventID   string      `json:"eventId,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type WSEmergencyUpdate struct {
	EventID        string         `json:"eventId"`
	Action         string         `json:"action"`
	EmergencyState EmergencyState `json:"emergencyState"`
	Actor          string         `json:"actor,omitempty"`
}

type WSGateUpdate struct {
	Gate  Gate   `json:"gate"`
	Actor string `json:"actor,omitempty"`
}

type WSShutdownAlert struct {
	Reason     string       `json:"reason"`
	ExecutedBy string       `json:"executedBy"`
	ExecutedAt time.Time    `json:"executedAt"`
	Status     SystemStatus `json:"status"`
}

type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type WSHubStats struct {
	Subscribers   int           `json:"subscribers"`
	Topics        int           `json:"topics"`
	MessagesSent  int64         `json:"messagesSent"`
	MessagesStale int64         `json:"messagesStale"`
	Uptime        time.Duration `json:"uptime"`
	LastPublishAt time.Time     `json:"lastPublishAt,omitempty"`
}

// WS error codes
const (
	WSErrorInvalidMessage = "INVALID_MESSAGE"
	WSErrorUnauthorized   = "UNAUTHORIZED"
	WSErrorNotFound       = "NOT_FOUND"
)
