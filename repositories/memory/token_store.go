package memory

import (
	"context"
	"eventops/models"
	"eventops/utils"
	"sort"
	"sync"
	"time"
)

// TokenStore is the in-memory shutdown token table.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]models.ShutdownToken
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]models.ShutdownToken)}
}

func (s *TokenStore) Save(_ context.Context, token models.ShutdownToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tokens[token.Token]; exists {
		return utils.NewConflictError("Shutdown token already exists")
	}
	s.tokens[token.Token] = token
	return nil
}

func (s *TokenStore) Get(_ context.Context, token string) (*models.ShutdownToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, utils.ErrTokenNotFound
	}
	return &t, nil
}

func (s *TokenStore) Consume(_ context.Context, token, consumedBy string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return false, utils.ErrTokenNotFound
	}
	if t.Consumed {
		return false, nil
	}
	t.Consumed = true
	t.ConsumedAt = at
	t.ConsumedBy = consumedBy
	s.tokens[token] = t
	return true, nil
}

func (s *TokenStore) MarkExecuted(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return utils.ErrTokenNotFound
	}
	t.Executed = true
	s.tokens[token] = t
	return nil
}

func (s *TokenStore) List(_ context.Context) ([]models.ShutdownToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ShutdownToken, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

func (s *TokenStore) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, t := range s.tokens {
		if !t.Consumed && t.ExpiresAt.Before(cutoff) {
			delete(s.tokens, key)
			removed++
		}
	}
	return removed, nil
}
