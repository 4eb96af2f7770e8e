package memory

import (
	"context"
	"sync"

	"github.com/quokka-collab/quokka/internal/domain"
)

// UserStore is an in-memory implementation of domain.UserStore.
type UserStore struct {
	users map[string]*domain.User
	mu    sync.RWMutex
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]*domain.User),
	}
}

// Get retrieves a user by ID.
func (s *UserStore) Get(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

// GetByUsername retrieves a user by username.
func (s *UserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Insert stores a new user.
func (s *UserStore) Insert(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return domain.ErrAlreadyExists
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}
