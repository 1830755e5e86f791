package models

import (
	"time"
)

// System status values
const (
	SystemStatusOperational  = "operational"
	SystemStatusMaintenance  = "maintenance"
	SystemStatusShuttingDown = "shutting_down"
	SystemStatusShutdown     = "shutdown"
)

// Shutdown flow states
const (
	ShutdownFlowIdle                = "IDLE"
	ShutdownFlowTokenIssued         = "TOKEN_ISSUED"
	ShutdownFlowCredentialsVerified = "CREDENTIALS_VERIFIED"
	ShutdownFlowExecuted            = "EXECUTED"
)

const DefaultShutdownTokenTTL = 30 * time.Minute

// ShutdownToken authorizes the final step of the global shutdown protocol.
// It is bound to the system-wide shutdown intent, not to any event.
type ShutdownToken struct {
	Token      string    `json:"token"`
	IssuedBy   string    `json:"issuedBy"`
	IssuedAt   time.Time `json:"issuedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Consumed   bool      `json:"consumed"`
	ConsumedAt time.Time `json:"consumedAt,omitempty"`
	ConsumedBy string    `json:"consumedBy,omitempty"`
	Executed   bool      `json:"executed"`
}

// IsExpiredAt reports whether the token window has closed at now.
func (t ShutdownToken) IsExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

type SystemStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsTerminal reports whether the status belongs to a shutdown episode.
func (s SystemStatus) IsTerminal() bool {
	return s.Status == SystemStatusShuttingDown || s.Status == SystemStatusShutdown
}

// Request / response DTOs
type IssueShutdownTokenRequest struct {
	TTLMinutes int `json:"ttlMinutes" validate:"gte=0"`
}

type IssueShutdownTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type VerifyShutdownRequest struct {
	Token   string `json:"token" validate:"required"`
	Secret  string `json:"secret" validate:"required"`
	OTPCode string `json:"otpCode,omitempty" validate:"omitempty,numeric,len=6"`
}

type VerifyShutdownResponse struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}

type ExecuteShutdownRequest struct {
	Token               string `json:"token" validate:"required"`
	Reason              string `json:"reason" validate:"required,min=1,max=500"`
	ConfirmIrreversible bool   `json:"confirmIrreversible" validate:"required"`
}

type ExecuteShutdownResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type MaintenanceModeRequest struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message" validate:"max=500"`
}

// SystemStatusView is the read model returned to operators.
type SystemStatusView struct {
	SystemStatus
	FlowState string `json:"flowState"`
}
