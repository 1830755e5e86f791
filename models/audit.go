package models

import (
	"time"
)

// Audit actions
const (
	AuditEmergencyActivated           = "emergency_activated"
	AuditEmergencyDeactivated         = "emergency_deactivated"
	AuditCategoryBlocked              = "emergency_category_blocked"
	AuditGateClosed                   = "gate_closed"
	AuditShutdownTokenIssued          = "shutdown_token_issued"
	AuditShutdownCredentialsVerified  = "shutdown_credentials_verified"
	AuditShutdownVerificationFailed   = "shutdown_verification_failed"
	AuditSystemShutdownExecuted       = "system_shutdown_executed"
	AuditSystemMaintenanceModeChanged = "system_maintenance_changed"
)

// AuditEntry is append-only. EventID is empty for system-wide actions.
type AuditEntry struct {
	ID        string                 `json:"id" bson:"_id"`
	EventID   string                 `json:"eventId,omitempty" bson:"eventId,omitempty"`
	Action    string                 `json:"action" bson:"action"`
	Actor     string                 `json:"actor" bson:"actor"`
	Timestamp time.Time              `json:"timestamp" bson:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty" bson:"payload,omitempty"`
}
