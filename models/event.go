package models

import (
	"time"
)

// EventRecord is the persisted live event. Only the fields the emergency
// engine reads or writes are modeled here.
type EventRecord struct {
	ID             string      `json:"id" bson:"_id"`
	OrganizationID string      `json:"organizationId" bson:"organizationId"`
	Name           string      `json:"name" bson:"name"`
	Config         EventConfig `json:"config" bson:"config"`
	CreatedAt      time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt" bson:"updatedAt"`
}

type EventConfig struct {
	CheckinsEnabled bool           `json:"checkinsEnabled" bson:"checkinsEnabled"`
	Capacity        EventCapacity  `json:"capacity" bson:"capacity"`
	EmergencyState  EmergencyState `json:"emergencyState" bson:"emergencyState"`
}

type EventCapacity struct {
	MaxCapacity int `json:"maxCapacity" bson:"maxCapacity"`
	CheckedIn   int `json:"checkedIn" bson:"checkedIn"`
}

// Gate status values
const (
	GateStatusOpen   = "open"
	GateStatusClosed = "closed"
)

type Gate struct {
	ID        string    `json:"id" bson:"_id"`
	EventID   string    `json:"eventId" bson:"eventId"`
	Name      string    `json:"name" bson:"name"`
	Status    string    `json:"status" bson:"status"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// StaffMember is a roster entry; the contact fields feed the mailbox channels.
type StaffMember struct {
	ID          string `json:"id" bson:"_id"`
	EventID     string `json:"eventId" bson:"eventId"`
	UserID      string `json:"userId" bson:"userId"`
	Name        string `json:"name" bson:"name"`
	Role        string `json:"role" bson:"role"`
	Phone       string `json:"phone,omitempty" bson:"phone,omitempty"`
	DeviceToken string `json:"-" bson:"deviceToken,omitempty"`
	IsActive    bool   `json:"isActive" bson:"isActive"`
}

// CapacityMetrics is the derived capacity view used in snapshots.
type CapacityMetrics struct {
	MaxCapacity     int     `json:"maxCapacity"`
	CheckedIn       int     `json:"checkedIn"`
	Remaining       int     `json:"remaining"`
	UtilizationPct  float64 `json:"utilizationPct"`
	CheckinsEnabled bool    `json:"checkinsEnabled"`
}

// EmergencySnapshot is the read-only export an operator downloads.
type EmergencySnapshot struct {
	EventID        string          `json:"eventId"`
	EventName      string          `json:"eventName"`
	EmergencyState EmergencyState  `json:"emergencyState"`
	Capacity       CapacityMetrics `json:"capacity"`
	Gates          []Gate          `json:"gates"`
	Staff          []StaffMember   `json:"staff"`
	History        []AuditEntry    `json:"history"`
	ExportedAt     time.Time       `json:"exportedAt"`
}

// NewCapacityMetrics derives utilization from the stored capacity counters.
func NewCapacityMetrics(cfg EventConfig) CapacityMetrics {
	m := CapacityMetrics{
		MaxCapacity:     cfg.Capacity.MaxCapacity,
		CheckedIn:       cfg.Capacity.CheckedIn,
		CheckinsEnabled: cfg.CheckinsEnabled,
	}
	if m.MaxCapacity > 0 {
		m.Remaining = m.MaxCapacity - m.CheckedIn
		if m.Remaining < 0 {
			m.Remaining = 0
		}
		m.UtilizationPct = float64(m.CheckedIn) * 100 / float64(m.MaxCapacity)
	}
	return m
}
