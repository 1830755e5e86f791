package memory

import (
	"context"
	"eventops/models"
	"eventops/utils"
	"sort"
	"sync"
	"time"
)

type GateStore struct {
	mu    sync.RWMutex
	gates map[string]models.Gate
}

func NewGateStore() *GateStore {
	return &GateStore{gates: make(map[string]models.Gate)}
}

func (s *GateStore) Put(_ context.Context, gate models.Gate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gate.Status == "" {
		gate.Status = models.GateStatusOpen
	}
	s.gates[gate.ID] = gate
	return nil
}

func (s *GateStore) GetByID(_ context.Context, gateID string) (*models.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gate, ok := s.gates[gateID]
	if !ok {
		return nil, utils.ErrGateNotFound
	}
	return &gate, nil
}

func (s *GateStore) ListByEvent(_ context.Context, eventID string) ([]models.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Gate, 0)
	for _, g := range s.gates {
		if g.EventID == eventID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *GateStore) Close(_ context.Context, gateID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate, ok := s.gates[gateID]
	if !ok {
		return false, utils.ErrGateNotFound
	}
	if gate.Status == models.GateStatusClosed {
		return false, nil
	}
	gate.Status = models.GateStatusClosed
	gate.UpdatedAt = at
	s.gates[gateID] = gate
	return true, nil
}
