package memory

import (
	"context"
	"eventops/models"
	"sort"
	"sync"
)

type StaffStore struct {
	mu    sync.RWMutex
	staff map[string]models.StaffMember
}

func NewStaffStore() *StaffStore {
	return &StaffStore{staff: make(map[string]models.StaffMember)}
}

func (s *StaffStore) Put(_ context.Context, member models.StaffMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff[member.ID] = member
	return nil
}

func (s *StaffStore) ActiveStaff(_ context.Context, eventID string) ([]models.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.StaffMember, 0)
	for _, m := range s.staff {
		if m.EventID == eventID && m.IsActive {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
