package user

import (
	"context"
	"strings"
	"sync"

	"waypoint/internal/identity/models"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in process. Username lookups are case
// sensitive, matching the Postgres UNIQUE constraint.
type InMemoryUserStore struct {
	mu         sync.RWMutex
	users      map[id.UserID]*models.User
	byUsername map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:      make(map[id.UserID]*models.User),
		byUsername: make(map[string]id.UserID),
	}
}

// Create stores u. A taken username returns sentinel.ErrAlreadyUsed.
func (s *InMemoryUserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUsername[u.Username]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.users[u.ID] = u
	s.byUsername[u.Username] = u.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return u, nil
}

func (s *InMemoryUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byUsername[strings.TrimSpace(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.users[userID], nil
}
