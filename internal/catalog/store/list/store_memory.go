package list

import (
	"context"
	"sort"
	"sync"

	"waypoint/internal/catalog/models"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/sentinel"
)

// InMemory stores lists in process. IDs increase monotonically, so sorting
// by ID yields creation order.
type InMemory struct {
	mu     sync.RWMutex
	lists  map[id.ListID]*models.List
	nextID id.ListID
}

func NewInMemory() *InMemory {
	return &InMemory{lists: make(map[id.ListID]*models.List)}
}

// Create assigns an ID to l and stores it.
func (s *InMemory) Create(_ context.Context, l *models.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(l)
	return nil
}

// CreateMany stores all lists under one lock, in slice order.
func (s *InMemory) CreateMany(_ context.Context, lists []*models.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lists {
		s.insertLocked(l)
	}
	return nil
}

func (s *InMemory) insertLocked(l *models.List) {
	s.nextID++
	l.ID = s.nextID
	stored := *l
	s.lists[stored.ID] = &stored
}

// ListByUser returns the user's lists in creation order.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.List, 0)
	for _, l := range s.lists {
		if l.UserID == userID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindByUserAndID returns ErrNotFound when the list is missing or owned by
// someone else.
func (s *InMemory) FindByUserAndID(_ context.Context, userID id.UserID, listID id.ListID) (*models.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lists[listID]
	if !ok || l.UserID != userID {
		return nil, sentinel.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

// FindByUserAndIDForUpdate is FindByUserAndID; the memory tx runner already
// serializes units of work.
func (s *InMemory) FindByUserAndIDForUpdate(ctx context.Context, userID id.UserID, listID id.ListID) (*models.List, error) {
	return s.FindByUserAndID(ctx, userID, listID)
}

func (s *InMemory) Delete(_ context.Context, listID id.ListID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lists[listID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.lists, listID)
	return nil
}

// CountDefaultByUser counts the user's default lists.
func (s *InMemory) CountDefaultByUser(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, l := range s.lists {
		if l.UserID == userID && l.IsDefault {
			n++
		}
	}
	return n, nil
}
