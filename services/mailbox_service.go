package services

import (
	"context"
	"eventops/interfaces"
	"eventops/models"
	"eventops/utils"
	"fmt"

	"github.com/sirupsen/logrus"
)

// MailboxService delivers a staff message: the mailbox record is the
// delivery, push and SMS are best-effort extra channels on top of it.
type MailboxService struct {
	messages interfaces.MessageStore
	push     *PushService
	sms      *SMSService
	clock    utils.Clock
}

func NewMailboxService(messages interfaces.MessageStore, push *PushService, sms *SMSService, clock utils.Clock) *MailboxService {
	return &MailboxService{
		messages: messages,
		push:     push,
		sms:      sms,
		clock:    clock,
	}
}

func (ms *MailboxService) Deliver(ctx context.Context, from models.Identity, to models.StaffMember, subject, body, priority string) error {
	message := &models.StaffMessage{
		ID:          utils.GenerateUUID(),
		EventID:     to.EventID,
		FromUserID:  from.UserID,
		ToStaffID:   to.ID,
		ToUserID:    to.UserID,
		Subject:     subject,
		Body:        body,
		Priority:    priority,
		DeliveredAt: ms.clock.Now(),
	}

	if err := ms.messages.Insert(ctx, message); err != nil {
		return fmt.Errorf("failed to store staff message: %w", err)
	}

	logger := logrus.WithFields(logrus.Fields{
		"staffId": to.ID,
		"eventId": to.EventID,
	})

	if to.DeviceToken != "" && ms.push.Enabled() {
		data := map[string]string{
			"messageId": message.ID,
			"eventId":   to.EventID,
			"priority":  priority,
		}
		if err := ms.push.Send(ctx, to.DeviceToken, subject, utils.TruncateString(body, 200), priority, data); err != nil {
			logger.WithError(err).Warn("Push delivery failed")
		}
	}

	if priority == models.AlertPriorityUrgent && to.Phone != "" && ms.sms.Enabled() {
		if err := ms.sms.Send(ctx, to.Phone, subject+": "+body); err != nil {
			logger.WithError(err).Warn("SMS delivery failed")
		}
	}

	return nil
}
