package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// MemoryStore provides an in-memory implementation of the Store interface,
// intended for development and testing scenarios.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*User
	nextID int64
}

// NewMemoryStore initialises the store with the provided seed users.
func NewMemoryStore(seeds ...Seed) (*MemoryStore, error) {
	store := &MemoryStore{users: make(map[string]*User)}
	for _, seed := range seeds {
		if err := store.EnsureUser(context.Background(), seed); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// EnsureUser implements the SeedWriter interface. Existing users are left
// untouched.
func (s *MemoryStore) EnsureUser(_ context.Context, seed Seed) error {
	if strings.TrimSpace(seed.Username) == "" {
		return errors.New("seed username cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[seed.Username]; exists {
		return nil
	}
	s.nextID++
	s.users[seed.Username] = &User{ID: s.nextID, Username: seed.Username, Password: seed.Password}
	return nil
}

// FindUserByUsername retrieves the user record.
func (s *MemoryStore) FindUserByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[username]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, ErrUserNotFound
}
