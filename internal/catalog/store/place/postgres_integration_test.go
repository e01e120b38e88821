//go:build integration

package place_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"waypoint/internal/catalog/models"
	"waypoint/internal/catalog/store/place"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/sentinel"
	"waypoint/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *place.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = place.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "list_places", "places")
	s.Require().NoError(err)
}

func newPlace(externalID, name string) *models.Place {
	return &models.Place{ExternalID: externalID, Name: name, Latitude: 48.85, Longitude: 2.35, CreatedAt: time.Now().UTC()}
}

func (s *PostgresStoreSuite) TestFirstWriterWins() {
	ctx := context.Background()

	first, created, err := s.store.GetOrCreate(ctx, newPlace("ext-1", "First"))
	s.Require().NoError(err)
	s.True(created)

	second, created, err := s.store.GetOrCreate(ctx, newPlace("ext-1", "Renamed"))
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, second.ID)
	s.Equal("First", second.Name)
}

func (s *PostgresStoreSuite) TestFindByExternalIDNotFound() {
	_, err := s.store.FindByExternalID(context.Background(), "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindByIDsKeepsRequestedOrder() {
	ctx := context.Background()
	a, _, err := s.store.GetOrCreate(ctx, newPlace("a", "A"))
	s.Require().NoError(err)
	b, _, err := s.store.GetOrCreate(ctx, newPlace("b", "B"))
	s.Require().NoError(err)

	places, err := s.store.FindByIDs(ctx, []id.PlaceID{b.ID, a.ID})
	s.Require().NoError(err)
	s.Require().Len(places, 2)
	s.Equal("B", places[0].Name)
	s.Equal("A", places[1].Name)
}

// TestConcurrentGetOrCreate verifies that racing inserts of one external id
// all resolve to the same row and exactly one reports creation.
func (s *PostgresStoreSuite) TestConcurrentGetOrCreate() {
	ctx := context.Background()
	const goroutines = 30

	var wg sync.WaitGroup
	var created atomic.Int32
	ids := make([]id.PlaceID, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, ok, err := s.store.GetOrCreate(ctx, newPlace("race", fmt.Sprintf("writer-%d", i)))
			s.NoError(err)
			if ok {
				created.Add(1)
			}
			ids[i] = p.ID
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
	for _, placeID := range ids {
		s.Equal(ids[0], placeID)
	}
}
