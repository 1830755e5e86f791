package memory

import (
	"context"
	"eventops/models"
	"eventops/utils"
	"sync"
	"time"
)

// AuditLog is an in-memory append-only audit sink.
type AuditLog struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (s *AuditLog) Append(_ context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = utils.GenerateUUID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.entries = append(s.entries, *entry)
	return nil
}

// Entries returns a copy of all recorded entries.
func (s *AuditLog) Entries() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// EntriesWithAction filters Entries by action.
func (s *AuditLog) EntriesWithAction(action string) []models.AuditEntry {
	var out []models.AuditEntry
	for _, e := range s.Entries() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// ListByEvent returns up to limit entries for eventID, newest first.
func (s *AuditLog) ListByEvent(_ context.Context, eventID string, limit int) ([]models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.AuditEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].EventID != eventID {
			continue
		}
		out = append(out, s.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
