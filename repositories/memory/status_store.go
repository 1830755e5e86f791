package memory

import (
	"context"
	"eventops/models"
	"sync"
	"time"
)

// StatusStore holds the SystemStatus singleton for one engine instance.
type StatusStore struct {
	mu     sync.RWMutex
	status models.SystemStatus
}

func NewStatusStore() *StatusStore {
	return &StatusStore{
		status: models.SystemStatus{
			Status:    models.SystemStatusOperational,
			Message:   "All systems operational",
			UpdatedAt: time.Now().UTC(),
		},
	}
}

func (s *StatusStore) Get(_ context.Context) (models.SystemStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, nil
}

func (s *StatusStore) Transition(_ context.Context, from []string, next models.SystemStatus) (models.SystemStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range from {
		if s.status.Status == f {
			s.status = next
			return s.status, true, nil
		}
	}
	return s.status, false, nil
}
