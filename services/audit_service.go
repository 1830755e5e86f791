package services

import (
	"context"
	"eventops/interfaces"
	"eventops/models"
	"eventops/utils"
	"time"

	"github.com/sirupsen/logrus"
)

// AuditService appends audit entries. The sink is fire-and-forget from the
// engine's point of view: failures are logged, never returned.
type AuditService struct {
	sink    interfaces.AuditSink
	clock   utils.Clock
	timeout time.Duration
}

func NewAuditService(sink interfaces.AuditSink, clock utils.Clock) *AuditService {
	return &AuditService{
		sink:    sink,
		clock:   clock,
		timeout: 5 * time.Second,
	}
}

func (as *AuditService) Record(ctx context.Context, eventID, action string, actor models.Identity, payload map[string]interface{}) {
	entry := &models.AuditEntry{
		ID:        utils.GenerateUUID(),
		EventID:   eventID,
		Action:    action,
		Actor:     actor.UserID,
		Timestamp: as.clock.Now(),
		Payload:   payload,
	}

	// The entry must land even if the caller's request context is cancelled
	// right after the mutation returns.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), as.timeout)
	defer cancel()

	if err := as.sink.Append(writeCtx, entry); err != nil {
		logrus.WithFields(logrus.Fields{
			"action":  action,
			"eventId": eventID,
			"actor":   actor.UserID,
		}).WithError(err).Error("Failed to append audit entry")
	}
}

// History returns the most recent entries for eventID. Sinks that cannot be
// read back yield nil.
func (as *AuditService) History(ctx context.Context, eventID string, limit int) ([]models.AuditEntry, error) {
	trail, ok := as.sink.(interfaces.AuditTrail)
	if !ok {
		return nil, nil
	}
	return trail.ListByEvent(ctx, eventID, limit)
}
