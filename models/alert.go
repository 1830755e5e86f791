package models

import (
	"time"
)

// Alert priorities
const (
	AlertPriorityLow    = "low"
	AlertPriorityNormal = "normal"
	AlertPriorityHigh   = "high"
	AlertPriorityUrgent = "urgent"
)

var alertPriorities = map[string]bool{
	AlertPriorityLow:    true,
	AlertPriorityNormal: true,
	AlertPriorityHigh:   true,
	AlertPriorityUrgent: true,
}

func IsValidAlertPriority(p string) bool {
	return alertPriorities[p]
}

// StaffMessage is the per-recipient alert record written to the mailbox.
type StaffMessage struct {
	ID          string    `json:"id" bson:"_id"`
	EventID     string    `json:"eventId,omitempty" bson:"eventId,omitempty"`
	FromUserID  string    `json:"fromUserId" bson:"fromUserId"`
	ToStaffID   string    `json:"toStaffId" bson:"toStaffId"`
	ToUserID    string    `json:"toUserId" bson:"toUserId"`
	Subject     string    `json:"subject" bson:"subject"`
	Body        string    `json:"body" bson:"body"`
	Priority    string    `json:"priority" bson:"priority"`
	IsRead      bool      `json:"isRead" bson:"isRead"`
	DeliveredAt time.Time `json:"deliveredAt" bson:"deliveredAt"`
}

type DeliveryFailure struct {
	StaffID string `json:"staffId"`
	UserID  string `json:"userId"`
	Error   string `json:"error"`
}

// BroadcastResult aggregates a fan-out; failures never abort the broadcast.
type BroadcastResult struct {
	EventID   string            `json:"eventId"`
	Attempted int               `json:"attempted"`
	Delivered int               `json:"delivered"`
	Failed    int               `json:"failed"`
	Failures  []DeliveryFailure `json:"failures,omitempty"`
}

// Alert is one message fanned out to every active staff member of an event.
type Alert struct {
	EventID  string
	From     Identity
	Subject  string
	Body     string
	Priority string
}
