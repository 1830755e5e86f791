package interfaces

import (
	"context"
	"eventops/models"
	"time"
)

// Collaborator contracts consumed by the emergency and shutdown engine.
// Mongo/Redis implementations live in repositories, in-memory ones in
// repositories/memory.

type EventRepository interface {
	GetByID(ctx context.Context, eventID string) (*models.EventRecord, error)
	// ActivateEmergency writes state only if no emergency is active for the
	// event. It returns a CONFLICT ServiceError when one already is.
	ActivateEmergency(ctx context.Context, eventID string, state models.EmergencyState, checkinsEnabled bool) error
	// ClearEmergency resets the state to the inactive variant and re-enables
	// check-ins. It reports whether an active emergency was cleared.
	ClearEmergency(ctx context.Context, eventID string) (bool, error)
	// AddBlockedCategory appends category to an active emergency with set
	// semantics and returns the resulting state.
	AddBlockedCategory(ctx context.Context, eventID, category string) (*models.EmergencyState, error)
}

type GateRepository interface {
	GetByID(ctx context.Context, gateID string) (*models.Gate, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Gate, error)
	// Close marks the gate closed and reports whether its status changed.
	Close(ctx context.Context, gateID string, at time.Time) (bool, error)
}

type StaffDirectory interface {
	ActiveStaff(ctx context.Context, eventID string) ([]models.StaffMember, error)
}

type Mailbox interface {
	Deliver(ctx context.Context, from models.Identity, to models.StaffMember, subject, body, priority string) error
}

// MessageStore persists staff mailbox records.
type MessageStore interface {
	Insert(ctx context.Context, message *models.StaffMessage) error
}

type AuditSink interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

// AuditTrail is implemented by sinks that can read entries back.
type AuditTrail interface {
	// ListByEvent returns up to limit entries for eventID, newest first.
	ListByEvent(ctx context.Context, eventID string, limit int) ([]models.AuditEntry, error)
}

type Authorizer interface {
	IsAdministrator(identity models.Identity) bool
}

type CredentialStore interface {
	GetShutdownCredential(ctx context.Context, userID string) (*models.ShutdownCredential, error)
}

// TokenStore is the process-wide shutdown token table.
type TokenStore interface {
	Save(ctx context.Context, token models.ShutdownToken) error
	Get(ctx context.Context, token string) (*models.ShutdownToken, error)
	// Consume atomically flips consumed from false to true. It returns false
	// when another caller already consumed the token.
	Consume(ctx context.Context, token, consumedBy string, at time.Time) (bool, error)
	MarkExecuted(ctx context.Context, token string) error
	List(ctx context.Context) ([]models.ShutdownToken, error)
	// DeleteExpired removes unconsumed tokens whose expiry is before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// StatusStore holds the singleton SystemStatus.
type StatusStore interface {
	Get(ctx context.Context) (models.SystemStatus, error)
	// Transition sets status to next only if the current status is one of from.
	// It returns the status after the call and whether the write happened.
	Transition(ctx context.Context, from []string, next models.SystemStatus) (models.SystemStatus, bool, error)
}

// Publisher pushes realtime updates to connected observers.
type Publisher interface {
	Publish(message models.WSMessage)
}
