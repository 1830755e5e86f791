package memory

import (
	"context"
	"eventops/models"
	"eventops/utils"
	"sync"
	"time"
)

// EventStore keeps event records in memory. It is intended for tests and the
// memory storage driver.
type EventStore struct {
	mu     sync.RWMutex
	events map[string]models.EventRecord
}

func NewEventStore() *EventStore {
	return &EventStore{events: make(map[string]models.EventRecord)}
}

// Put inserts or replaces an event record.
func (s *EventStore) Put(_ context.Context, event models.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.Config.EmergencyState = event.Config.EmergencyState.Clone()
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = time.Now().UTC()
	}
	s.events[event.ID] = event
	return nil
}

func (s *EventStore) GetByID(_ context.Context, eventID string) (*models.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, utils.ErrEventNotFound
	}
	event.Config.EmergencyState = event.Config.EmergencyState.Clone()
	return &event, nil
}

func (s *EventStore) ActivateEmergency(_ context.Context, eventID string, state models.EmergencyState, checkinsEnabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return utils.ErrEventNotFound
	}
	if event.Config.EmergencyState.IsActive {
		return utils.NewConflictError("An emergency is already active for this event")
	}
	event.Config.EmergencyState = state.Clone()
	event.Config.CheckinsEnabled = checkinsEnabled
	event.UpdatedAt = time.Now().UTC()
	s.events[eventID] = event
	return nil
}

func (s *EventStore) ClearEmergency(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return false, utils.ErrEventNotFound
	}
	if !event.Config.EmergencyState.IsActive {
		return false, nil
	}
	event.Config.EmergencyState = models.InactiveEmergencyState()
	event.Config.CheckinsEnabled = true
	event.UpdatedAt = time.Now().UTC()
	s.events[eventID] = event
	return true, nil
}

func (s *EventStore) AddBlockedCategory(_ context.Context, eventID, category string) (*models.EmergencyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, utils.ErrEventNotFound
	}
	if !event.Config.EmergencyState.IsActive {
		return nil, utils.NewConflictError("No active emergency for this event")
	}
	state := event.Config.EmergencyState.Clone()
	if !state.HasBlockedCategory(category) {
		state.Restrictions.BlockedCategories = append(state.Restrictions.BlockedCategories, category)
		event.Config.EmergencyState = state
		event.UpdatedAt = time.Now().UTC()
		s.events[eventID] = event
	}
	out := state.Clone()
	return &out, nil
}
