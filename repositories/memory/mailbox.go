package memory

import (
	"context"
	"eventops/models"
	"eventops/utils"
	"sync"
	"time"
)

// Mailbox records delivered staff messages in memory.
type Mailbox struct {
	mu       sync.Mutex
	messages []models.StaffMessage
}

func NewMailbox() *Mailbox {
	return &Mailbox{}
}

func (m *Mailbox) Deliver(_ context.Context, from models.Identity, to models.StaffMember, subject, body, priority string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, models.StaffMessage{
		ID:          utils.GenerateUUID(),
		EventID:     to.EventID,
		FromUserID:  from.UserID,
		ToStaffID:   to.ID,
		ToUserID:    to.UserID,
		Subject:     subject,
		Body:        body,
		Priority:    priority,
		DeliveredAt: time.Now().UTC(),
	})
	return nil
}

func (m *Mailbox) Insert(_ context.Context, message *models.StaffMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if message.ID == "" {
		message.ID = utils.GenerateUUID()
	}
	m.messages = append(m.messages, *message)
	return nil
}

// Messages returns a copy of everything delivered so far.
func (m *Mailbox) Messages() []models.StaffMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.StaffMessage, len(m.messages))
	copy(out, m.messages)
	return out
}
