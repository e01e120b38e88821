//go:build integration

package list_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"waypoint/internal/catalog/models"
	"waypoint/internal/catalog/store/list"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/sentinel"
	"waypoint/pkg/platform/tx"
	"waypoint/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *list.PostgresStore
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
	s.store = list.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "list_places", "places", "lists", "users")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newUser() id.UserID {
	userID := id.NewUserID()
	_, err := s.postgres.DB.ExecContext(context.Background(),
		`INSERT INTO users (id, username, password_hash) VALUES ($1, $2, 'x')`,
		uuid.UUID(userID), "user-"+userID.String(),
	)
	s.Require().NoError(err)
	return userID
}

func (s *PostgresStoreSuite) TestDefaultListsAreAtomicAndOrdered() {
	ctx := context.Background()
	userID := s.newUser()
	runner := tx.NewPostgresRunner(s.postgres.DB)

	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.CreateMany(ctx, models.NewDefaultLists(userID, time.Now()))
	})
	s.Require().NoError(err)

	lists, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(lists, 2)
	s.Equal(models.DefaultListFavorites, lists[0].Name)
	s.Equal(models.DefaultListPlanned, lists[1].Name)
	s.True(lists[0].IsDefault)

	n, err := s.store.CountDefaultByUser(ctx, userID)
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *PostgresStoreSuite) TestSecondDefaultListSetIsRejected() {
	ctx := context.Background()
	userID := s.newUser()
	s.Require().NoError(s.store.CreateMany(ctx, models.NewDefaultLists(userID, time.Now())))

	err := s.store.CreateMany(ctx, models.NewDefaultLists(userID, time.Now()))
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	// non-default lists may reuse the names
	s.Require().NoError(s.store.Create(ctx, &models.List{UserID: userID, Name: models.DefaultListFavorites, CreatedAt: time.Now()}))

	n, err := s.store.CountDefaultByUser(ctx, userID)
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *PostgresStoreSuite) TestRolledBackCreateLeavesNothing() {
	ctx := context.Background()
	userID := s.newUser()
	runner := tx.NewPostgresRunner(s.postgres.DB)

	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateMany(ctx, models.NewDefaultLists(userID, time.Now())); err != nil {
			return err
		}
		return sentinel.ErrUnavailable
	})
	s.Require().ErrorIs(err, sentinel.ErrUnavailable)

	lists, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Empty(lists)
}

func (s *PostgresStoreSuite) TestOwnershipAndDelete() {
	ctx := context.Background()
	owner := s.newUser()
	other := s.newUser()

	l, err := models.NewList(owner, "Coffee", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, l))

	_, err = s.store.FindByUserAndID(ctx, other, l.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	found, err := s.store.FindByUserAndID(ctx, owner, l.ID)
	s.Require().NoError(err)
	s.Equal("Coffee", found.Name)
	s.Equal(owner, found.UserID)

	s.Require().NoError(s.store.Delete(ctx, l.ID))
	s.ErrorIs(s.store.Delete(ctx, l.ID), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestLockedListDeleteIsNotRaced() {
	ctx := context.Background()
	owner := s.newUser()
	l, err := models.NewList(owner, "Trip", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, l))

	var placeID int64
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx,
		`INSERT INTO places (external_id, name) VALUES ('p-lock', 'p-lock') RETURNING id`).Scan(&placeID))

	runner := tx.NewPostgresRunner(s.postgres.DB)
	inserted := make(chan error, 1)
	err = runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.FindByUserAndIDForUpdate(ctx, owner, l.ID); err != nil {
			return err
		}
		go func() {
			_, err := s.postgres.DB.ExecContext(context.Background(),
				`INSERT INTO list_places (list_id, place_id) VALUES ($1, $2)`, int64(l.ID), placeID)
			inserted <- err
		}()
		time.Sleep(200 * time.Millisecond)
		return s.store.Delete(ctx, l.ID)
	})
	s.Require().NoError(err)

	select {
	case err := <-inserted:
		s.Error(err)
	case <-time.After(5 * time.Second):
		s.FailNow("insert never finished")
	}

	_, err = s.store.FindByUserAndIDForUpdate(ctx, owner, l.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
