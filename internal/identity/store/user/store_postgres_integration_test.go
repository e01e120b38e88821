//go:build integration

package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"waypoint/internal/identity/models"
	"waypoint/internal/identity/store/user"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/sentinel"
	"waypoint/pkg/testutil/containers"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresUserStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "list_places", "lists", "users"))
}

func (s *PostgresUserStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	u := &models.User{ID: id.NewUserID(), Username: "jane", PasswordHash: []byte("$2a$04$hash"), CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}
	s.Require().NoError(s.store.Create(ctx, u))

	byID, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Username, byID.Username)
	s.Equal(u.PasswordHash, byID.PasswordHash)

	byName, err := s.store.FindByUsername(ctx, "jane")
	s.Require().NoError(err)
	s.Equal(u.ID, byName.ID)
}

func (s *PostgresUserStoreSuite) TestDuplicateUsername() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, &models.User{ID: id.NewUserID(), Username: "sam", PasswordHash: []byte("h"), CreatedAt: time.Now()}))
	err := s.store.Create(ctx, &models.User{ID: id.NewUserID(), Username: "sam", PasswordHash: []byte("h"), CreatedAt: time.Now()})
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresUserStoreSuite) TestNotFound() {
	_, err := s.store.FindByUsername(context.Background(), "ghost")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
