package services

import (
	"context"
	"errors"
	"eventops/models"
	"eventops/repositories/memory"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingPublisher captures every realtime message.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []models.WSMessage
}

func (p *recordingPublisher) Publish(message models.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
}

func (p *recordingPublisher) OfType(messageType string) []models.WSMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.WSMessage
	for _, m := range p.messages {
		if m.Type == messageType {
			out = append(out, m)
		}
	}
	return out
}

// failingAuditSink rejects every entry.
type failingAuditSink struct{}

func (failingAuditSink) Append(context.Context, *models.AuditEntry) error {
	return errors.New("audit store unavailable")
}

// MockMailbox mocks the Mailbox interface
type MockMailbox struct {
	mock.Mock
}

func (m *MockMailbox) Deliver(ctx context.Context, from models.Identity, to models.StaffMember, subject, body, priority string) error {
	args := m.Called(ctx, from, to, subject, body, priority)
	return args.Error(0)
}

var (
	adminIdentity    = models.Identity{UserID: "usr-admin", Name: "Admin", Role: models.RoleAdmin}
	operatorIdentity = models.Identity{UserID: "usr-operator", Name: "Operator", Role: models.RoleOperator}
)

const (
	testEventID = "evt-arena"
	otherEvent  = "evt-stadium"
)

// emergencyFixture wires an EmergencyService to in-memory stores.
type emergencyFixture struct {
	service   *EmergencyService
	events    *memory.EventStore
	gates     *memory.GateStore
	staff     *memory.StaffStore
	audit     *memory.AuditLog
	mailbox   *memory.Mailbox
	publisher *recordingPublisher
	clock     *fakeClock
}

func newEmergencyFixture() *emergencyFixture {
	ctx := context.Background()
	f := &emergencyFixture{
		events:    memory.NewEventStore(),
		gates:     memory.NewGateStore(),
		staff:     memory.NewStaffStore(),
		audit:     memory.NewAuditLog(),
		mailbox:   memory.NewMailbox(),
		publisher: &recordingPublisher{},
		clock:     newFakeClock(),
	}

	f.events.Put(ctx, models.EventRecord{
		ID:   testEventID,
		Name: "Arena Night",
		Config: models.EventConfig{
			CheckinsEnabled: true,
			Capacity:        models.EventCapacity{MaxCapacity: 1000, CheckedIn: 250},
		},
	})
	f.events.Put(ctx, models.EventRecord{ID: otherEvent, Name: "Stadium", Config: models.EventConfig{CheckinsEnabled: true}})

	f.gates.Put(ctx, models.Gate{ID: "gate-north", EventID: testEventID, Name: "North", Status: models.GateStatusOpen})
	f.gates.Put(ctx, models.Gate{ID: "gate-south", EventID: testEventID, Name: "South", Status: models.GateStatusOpen})
	f.gates.Put(ctx, models.Gate{ID: "gate-foreign", EventID: otherEvent, Name: "Foreign", Status: models.GateStatusOpen})

	f.staff.Put(ctx, models.StaffMember{ID: "stf-1", EventID: testEventID, UserID: "usr-1", Name: "One", IsActive: true})
	f.staff.Put(ctx, models.StaffMember{ID: "stf-2", EventID: testEventID, UserID: "usr-2", Name: "Two", IsActive: true})
	f.staff.Put(ctx, models.StaffMember{ID: "stf-3", EventID: testEventID, UserID: "usr-3", Name: "Three", IsActive: false})

	alerts := NewAlertService(f.staff, f.mailbox, AlertServiceConfig{Workers: 2, DeliveryTimeout: time.Second})
	f.service = NewEmergencyService(f.events, f.gates, f.staff, alerts, NewAuditService(f.audit, f.clock), f.publisher, f.clock)
	return f
}
