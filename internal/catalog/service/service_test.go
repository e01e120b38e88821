package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"waypoint/internal/audit"
	"waypoint/internal/catalog/models"
	"waypoint/internal/catalog/store/list"
	"waypoint/internal/catalog/store/membership"
	"waypoint/internal/catalog/store/place"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx         context.Context
	places      *place.InMemory
	lists       *list.InMemory
	memberships *membership.InMemory
	publisher   *audit.MemoryPublisher
	service     *Service
	user        id.UserID
	other       id.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.places = place.NewInMemory()
	s.lists = list.NewInMemory()
	s.memberships = membership.NewInMemory()
	s.publisher = audit.NewMemoryPublisher()
	s.service = New(s.places, s.lists, s.memberships, WithAuditPublisher(s.publisher))
	s.user = id.NewUserID()
	s.other = id.NewUserID()

	_, err := s.service.CreateDefaultLists(s.ctx, s.user)
	s.Require().NoError(err)
	_, err = s.service.CreateDefaultLists(s.ctx, s.other)
	s.Require().NoError(err)
}

func attrs(externalID, name string) models.PlaceAttributes {
	return models.PlaceAttributes{
		ExternalID: externalID,
		Name:       name,
		Address:    name + " street",
		Latitude:   52.52,
		Longitude:  13.40,
		Category:   "catering.cafe",
	}
}

func (s *ServiceSuite) defaultLists(userID id.UserID) (favorites, planned *models.List) {
	lists, err := s.service.Lists(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(lists, 2)
	return lists[0], lists[1]
}

func (s *ServiceSuite) TestDefaultListsProvisioned() {
	favorites, planned := s.defaultLists(s.user)
	s.Equal(models.DefaultListFavorites, favorites.Name)
	s.Equal(models.DefaultListPlanned, planned.Name)
	s.True(favorites.IsDefault)
	s.True(planned.IsDefault)

	for _, l := range []*models.List{favorites, planned} {
		places, err := s.service.ListPlaces(s.ctx, s.user, l.ID)
		s.Require().NoError(err)
		s.Empty(places)
	}
}

func (s *ServiceSuite) TestCreateDefaultListsRejectsNilUser() {
	_, err := s.service.CreateDefaultLists(s.ctx, id.UserID{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestCreateDefaultListsOnlyOnce() {
	_, err := s.service.CreateDefaultLists(s.ctx, s.user)
	s.Require().ErrorIs(err, models.ErrDefaultListsExist)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	n, err := s.lists.CountDefaultByUser(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.defaultLists(s.user)
}

func (s *ServiceSuite) TestCreateList() {
	s.Run("trims and stores the name", func() {
		l, err := s.service.CreateList(s.ctx, s.user, "  Road trip  ")
		s.Require().NoError(err)
		s.Equal("Road trip", l.Name)
		s.False(l.IsDefault)

		lists, err := s.service.Lists(s.ctx, s.user)
		s.Require().NoError(err)
		s.Len(lists, 3)
		s.Equal(l.ID, lists[2].ID)
	})

	s.Run("duplicate names are allowed", func() {
		_, err := s.service.CreateList(s.ctx, s.user, "Favorites")
		s.NoError(err)
	})

	s.Run("blank name is a validation error", func() {
		_, err := s.service.CreateList(s.ctx, s.user, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("emits an audit event", func() {
		events := s.publisher.ListByUser(s.user)
		s.Require().NotEmpty(events)
		s.Equal(audit.EventListCreated, events[0].Action)
		s.Equal("Road trip", events[0].Attributes["list_name"])
	})
}

func (s *ServiceSuite) TestGetListOwnedByAnotherUser() {
	favorites, _ := s.defaultLists(s.other)
	_, err := s.service.GetList(s.ctx, s.user, favorites.ID)
	s.ErrorIs(err, models.ErrListNotFound)
}

func (s *ServiceSuite) TestDeleteList() {
	s.Run("default lists are protected", func() {
		favorites, planned := s.defaultLists(s.user)
		s.ErrorIs(deleteErr(s.service.DeleteList(s.ctx, s.user, favorites.ID)), models.ErrDefaultListProtected)
		s.ErrorIs(deleteErr(s.service.DeleteList(s.ctx, s.user, planned.ID)), models.ErrDefaultListProtected)
		s.defaultLists(s.user)
	})

	s.Run("removes memberships but keeps places", func() {
		trip, err := s.service.CreateList(s.ctx, s.user, "Trip")
		s.Require().NoError(err)
		_, err = s.service.AddLocationToList(s.ctx, s.user, trip.ID, attrs("ext-del", "Museum"))
		s.Require().NoError(err)

		deleted, err := s.service.DeleteList(s.ctx, s.user, trip.ID)
		s.Require().NoError(err)
		s.Equal("Trip", deleted.Name)

		_, err = s.service.GetList(s.ctx, s.user, trip.ID)
		s.ErrorIs(err, models.ErrListNotFound)
		ids, err := s.memberships.PlaceIDsByList(s.ctx, trip.ID)
		s.Require().NoError(err)
		s.Empty(ids)
		_, err = s.service.FindPlace(s.ctx, "ext-del")
		s.NoError(err)
	})

	s.Run("unknown list", func() {
		s.ErrorIs(deleteErr(s.service.DeleteList(s.ctx, s.user, id.ListID(9999))), models.ErrListNotFound)
	})

	s.Run("another user's list", func() {
		theirs, err := s.service.CreateList(s.ctx, s.other, "Theirs")
		s.Require().NoError(err)
		s.ErrorIs(deleteErr(s.service.DeleteList(s.ctx, s.user, theirs.ID)), models.ErrListNotFound)
	})
}

func (s *ServiceSuite) TestDeleteListRacingAdds() {
	trip, err := s.service.CreateList(s.ctx, s.user, "Trip")
	s.Require().NoError(err)

	const adders = 8
	var wg sync.WaitGroup
	addErrs := make([]error, adders)
	for i := 0; i < adders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, addErrs[i] = s.service.AddLocationToList(s.ctx, s.user, trip.ID, attrs(fmt.Sprintf("ext-race-%d", i), "Spot"))
		}(i)
	}
	_, deleteErr := s.service.DeleteList(s.ctx, s.user, trip.ID)
	wg.Wait()

	s.Require().NoError(deleteErr)
	for _, err := range addErrs {
		if err != nil {
			s.ErrorIs(err, models.ErrListNotFound)
		}
	}
	ids, err := s.memberships.PlaceIDsByList(s.ctx, trip.ID)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *ServiceSuite) TestAddLocationToList() {
	favorites, planned := s.defaultLists(s.user)

	s.Run("first writer wins on place attributes", func() {
		first, err := s.service.AddLocationToList(s.ctx, s.user, favorites.ID, attrs("ext-1", "Cafe First"))
		s.Require().NoError(err)

		second, err := s.service.AddLocationToList(s.ctx, s.user, planned.ID, attrs("ext-1", "Renamed Cafe"))
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
		s.Equal("Cafe First", second.Name)
	})

	s.Run("adding twice conflicts", func() {
		_, err := s.service.AddLocationToList(s.ctx, s.user, favorites.ID, attrs("ext-1", "Cafe First"))
		s.ErrorIs(err, models.ErrAlreadyMember)
		s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))
	})

	s.Run("missing external id is a validation error", func() {
		_, err := s.service.AddLocationToList(s.ctx, s.user, favorites.ID, attrs(" ", "Nowhere"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("list of another user", func() {
		theirs, _ := s.defaultLists(s.other)
		_, err := s.service.AddLocationToList(s.ctx, s.user, theirs.ID, attrs("ext-2", "Bakery"))
		s.ErrorIs(err, models.ErrListNotFound)
		_, err = s.service.FindPlace(s.ctx, "ext-2")
		s.ErrorIs(err, models.ErrLocationNotFound)
	})

	s.Run("places appear in insertion order", func() {
		_, err := s.service.AddLocationToList(s.ctx, s.user, favorites.ID, attrs("ext-3", "Park"))
		s.Require().NoError(err)
		details, err := s.service.ListDetails(s.ctx, s.user, favorites.ID)
		s.Require().NoError(err)
		s.Require().Len(details.Places, 2)
		s.Equal("ext-1", details.Places[0].ExternalID)
		s.Equal("ext-3", details.Places[1].ExternalID)
	})
}

func (s *ServiceSuite) TestConcurrentAddsOneWins() {
	favorites, _ := s.defaultLists(s.user)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.AddLocationToList(s.ctx, s.user, favorites.ID, attrs("ext-race", "Race"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, models.ErrAlreadyMember):
			conflicts++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, ok)
	s.Equal(workers-1, conflicts)
}

func (s *ServiceSuite) TestRemoveLocationFromList() {
	favorites, planned := s.defaultLists(s.user)
	_, err := s.service.AddLocationToList(s.ctx, s.user, favorites.ID, attrs("ext-1", "Cafe"))
	s.Require().NoError(err)

	s.Run("removes once", func() {
		s.Require().NoError(s.service.RemoveLocationFromList(s.ctx, s.user, favorites.ID, "ext-1"))
		s.ErrorIs(s.service.RemoveLocationFromList(s.ctx, s.user, favorites.ID, "ext-1"), models.ErrNotMember)
	})

	s.Run("place never in list", func() {
		s.ErrorIs(s.service.RemoveLocationFromList(s.ctx, s.user, planned.ID, "ext-1"), models.ErrNotMember)
	})

	s.Run("unknown place", func() {
		s.ErrorIs(s.service.RemoveLocationFromList(s.ctx, s.user, planned.ID, "ext-missing"), models.ErrLocationNotFound)
	})

	s.Run("unknown list", func() {
		s.ErrorIs(s.service.RemoveLocationFromList(s.ctx, s.user, id.ListID(9999), "ext-1"), models.ErrListNotFound)
	})

	s.Run("place record survives", func() {
		_, err := s.service.FindPlace(s.ctx, "ext-1")
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestMembershipMatrix() {
	favorites, planned := s.defaultLists(s.user)
	trip, err := s.service.CreateList(s.ctx, s.user, "Trip")
	s.Require().NoError(err)

	_, err = s.service.AddLocationToList(s.ctx, s.user, favorites.ID, attrs("ext-1", "Cafe"))
	s.Require().NoError(err)
	_, err = s.service.AddLocationToList(s.ctx, s.user, trip.ID, attrs("ext-1", "Cafe"))
	s.Require().NoError(err)

	s.Run("reports every list in creation order", func() {
		matrix, err := s.service.MembershipMatrix(s.ctx, s.user, "ext-1")
		s.Require().NoError(err)
		s.Equal([]models.MembershipStatus{
			{ListID: favorites.ID, ListName: models.DefaultListFavorites, IsMember: true},
			{ListID: planned.ID, ListName: models.DefaultListPlanned, IsMember: false},
			{ListID: trip.ID, ListName: "Trip", IsMember: true},
		}, matrix)
	})

	s.Run("unknown place is all false", func() {
		matrix, err := s.service.MembershipMatrix(s.ctx, s.user, "ext-unknown")
		s.Require().NoError(err)
		s.Len(matrix, 3)
		for _, row := range matrix {
			s.False(row.IsMember)
		}
	})

	s.Run("other users' memberships are not visible", func() {
		matrix, err := s.service.MembershipMatrix(s.ctx, s.other, "ext-1")
		s.Require().NoError(err)
		s.Len(matrix, 2)
		for _, row := range matrix {
			s.False(row.IsMember)
		}
	})
}

func (s *ServiceSuite) TestPaddedExternalIDsResolveToSamePlace() {
	favorites, _ := s.defaultLists(s.user)
	_, err := s.service.AddLocationToList(s.ctx, s.user, favorites.ID, attrs(" ext-pad ", "Cafe"))
	s.Require().NoError(err)

	s.Run("lookup", func() {
		place, err := s.service.FindPlace(s.ctx, "ext-pad ")
		s.Require().NoError(err)
		s.Equal("ext-pad", place.ExternalID)
	})

	s.Run("matrix", func() {
		matrix, err := s.service.MembershipMatrix(s.ctx, s.user, "\text-pad")
		s.Require().NoError(err)
		s.Require().NotEmpty(matrix)
		s.True(matrix[0].IsMember)
	})

	s.Run("remove", func() {
		s.Require().NoError(s.service.RemoveLocationFromList(s.ctx, s.user, favorites.ID, " ext-pad"))
	})
}

func (s *ServiceSuite) TestAuditEventsAreLoggedOnlyWithoutPublisher() {
	favorites, _ := s.defaultLists(s.user)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	s.Run("publisher configured", func() {
		buf.Reset()
		s.publisher.Clear()
		svc := New(s.places, s.lists, s.memberships, WithLogger(logger), WithAuditPublisher(s.publisher))
		_, err := svc.AddLocationToList(s.ctx, s.user, favorites.ID, attrs("ext-log-1", "Cafe"))
		s.Require().NoError(err)

		s.NotContains(buf.String(), `"log_type":"audit"`)
		s.Len(s.publisher.ListByUser(s.user), 1)
	})

	s.Run("no publisher", func() {
		buf.Reset()
		svc := New(s.places, s.lists, s.memberships, WithLogger(logger))
		_, err := svc.AddLocationToList(s.ctx, s.user, favorites.ID, attrs("ext-log-2", "Cafe"))
		s.Require().NoError(err)

		s.Equal(1, strings.Count(buf.String(), `"log_type":"audit"`))
		s.Contains(buf.String(), `"msg":"location_added"`)
	})
}

func (s *ServiceSuite) TestAuditTrail() {
	favorites, _ := s.defaultLists(s.user)
	ctx := requestcontext.WithRequestID(s.ctx, "req-123")
	_, err := s.service.AddLocationToList(ctx, s.user, favorites.ID, attrs("ext-1", "Cafe"))
	s.Require().NoError(err)
	s.Require().NoError(s.service.RemoveLocationFromList(ctx, s.user, favorites.ID, "ext-1"))

	events := s.publisher.ListByUser(s.user)
	s.Require().Len(events, 2)
	s.Equal(audit.EventLocationAdded, events[0].Action)
	s.Equal(audit.EventLocationRemoved, events[1].Action)
	s.Equal("req-123", events[0].RequestID)
	s.Equal(favorites.ID.String(), events[0].Subject)
	s.Equal("ext-1", events[1].Attributes["place_id"])
}

func deleteErr(_ *models.List, err error) error {
	return err
}

type failingLists struct {
	*list.InMemory
}

func (failingLists) ListByUser(context.Context, id.UserID) ([]*models.List, error) {
	return nil, errors.New("connection reset")
}

func (s *ServiceSuite) TestStoreFailureIsInternal() {
	svc := New(s.places, failingLists{s.lists}, s.memberships)
	_, err := svc.MembershipMatrix(s.ctx, s.user, "ext-1")
	s.Equal(dErrors.CodeInternal, dErrors.CodeOf(err))
}
