package place

import (
	"context"
	"sync"

	"waypoint/internal/catalog/models"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/sentinel"
)

// InMemory is the in-process place registry. ExternalID is unique.
type InMemory struct {
	mu         sync.RWMutex
	byID       map[id.PlaceID]*models.Place
	byExternal map[string]id.PlaceID
	nextID     id.PlaceID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:       make(map[id.PlaceID]*models.Place),
		byExternal: make(map[string]id.PlaceID),
	}
}

// GetOrCreate stores p unless a place with the same external id exists, in
// which case the existing record is returned and p is discarded.
func (s *InMemory) GetOrCreate(_ context.Context, p *models.Place) (*models.Place, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byExternal[p.ExternalID]; ok {
		existing := *s.byID[existingID]
		return &existing, false, nil
	}

	s.nextID++
	stored := *p
	stored.ID = s.nextID
	s.byID[stored.ID] = &stored
	s.byExternal[stored.ExternalID] = stored.ID

	out := stored
	return &out, true, nil
}

func (s *InMemory) FindByExternalID(_ context.Context, externalID string) (*models.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeID, ok := s.byExternal[externalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	p := *s.byID[placeID]
	return &p, nil
}

// FindByIDs returns the places for ids in the order given. Unknown ids are
// skipped.
func (s *InMemory) FindByIDs(_ context.Context, ids []id.PlaceID) ([]*models.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Place, 0, len(ids))
	for _, placeID := range ids {
		if p, ok := s.byID[placeID]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}
