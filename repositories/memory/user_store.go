package memory

import (
	"context"
	"eventops/models"
	"eventops/utils"
	"sync"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]models.User)}
}

func (s *UserStore) Put(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *UserStore) GetShutdownCredential(_ context.Context, userID string) (*models.ShutdownCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok || !user.IsActive {
		return nil, utils.ErrUserNotFound
	}
	return &models.ShutdownCredential{
		UserID:           user.ID,
		SecretHash:       user.ShutdownSecretHash,
		TwoFactorEnabled: user.TwoFactorEnabled,
		TwoFactorSecret:  user.TwoFactorSecret,
	}, nil
}
