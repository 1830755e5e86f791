package models

import "time"

// APIResponse is the envelope of every REST reply. A rejected shutdown
// verification carries both Data and Error.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Health Check Response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

type HostStats struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
	MemoryUsedMB  uint64  `json:"memoryUsedMb"`
	Goroutines    int     `json:"goroutines"`
}

// Envelope codes for failures raised outside the service layer. Service
// failures carry the ServiceError code instead.
const (
	ErrCodeAuthentication = "AUTHENTICATION_ERROR"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnavailable    = "SERVICE_UNAVAILABLE"
)
