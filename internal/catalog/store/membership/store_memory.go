package membership

import (
	"context"
	"sync"

	"waypoint/internal/catalog/models"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/sentinel"
)

type pairKey struct {
	listID  id.ListID
	placeID id.PlaceID
}

// InMemory is the in-process membership ledger. (list, place) is unique.
type InMemory struct {
	mu      sync.RWMutex
	byPair  map[pairKey]*models.Membership
	ordered []*models.Membership
	nextID  id.MembershipID
}

func NewInMemory() *InMemory {
	return &InMemory{byPair: make(map[pairKey]*models.Membership)}
}

// Add records the membership or returns ErrAlreadyUsed if the pair exists.
func (s *InMemory) Add(_ context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{m.ListID, m.PlaceID}
	if _, ok := s.byPair[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.nextID++
	m.ID = s.nextID
	stored := *m
	s.byPair[key] = &stored
	s.ordered = append(s.ordered, &stored)
	return nil
}

// Remove deletes the pair or returns ErrNotFound if absent.
func (s *InMemory) Remove(_ context.Context, listID id.ListID, placeID id.PlaceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{listID, placeID}
	m, ok := s.byPair[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byPair, key)
	s.removeOrderedLocked(m.ID)
	return nil
}

func (s *InMemory) removeOrderedLocked(membershipID id.MembershipID) {
	for i, m := range s.ordered {
		if m.ID == membershipID {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			return
		}
	}
}

// DeleteByList removes every membership of a list and returns how many.
func (s *InMemory) DeleteByList(_ context.Context, listID id.ListID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.ordered[:0]
	removed := 0
	for _, m := range s.ordered {
		if m.ListID == listID {
			delete(s.byPair, pairKey{m.ListID, m.PlaceID})
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.ordered = kept
	return removed, nil
}

// PlaceIDsByList returns the list's place ids in insertion order.
func (s *InMemory) PlaceIDsByList(_ context.Context, listID id.ListID) ([]id.PlaceID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]id.PlaceID, 0)
	for _, m := range s.ordered {
		if m.ListID == listID {
			out = append(out, m.PlaceID)
		}
	}
	return out, nil
}

// ListIDsContaining returns every list that holds the place.
func (s *InMemory) ListIDsContaining(_ context.Context, placeID id.PlaceID) ([]id.ListID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]id.ListID, 0)
	for _, m := range s.ordered {
		if m.PlaceID == placeID {
			out = append(out, m.ListID)
		}
	}
	return out, nil
}
