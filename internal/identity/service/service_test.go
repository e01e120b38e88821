package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"waypoint/internal/audit"
	catalogModels "waypoint/internal/catalog/models"
	catalog "waypoint/internal/catalog/service"
	"waypoint/internal/catalog/store/list"
	"waypoint/internal/catalog/store/membership"
	"waypoint/internal/catalog/store/place"
	"waypoint/internal/identity/models"
	"waypoint/internal/identity/store/revocation"
	"waypoint/internal/identity/store/user"
	"waypoint/internal/identity/token"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
)

type IdentityServiceSuite struct {
	suite.Suite
	ctx         context.Context
	users       *user.InMemoryUserStore
	memberships *membership.InMemory
	catalog     *catalog.Service
	tokens      *token.JWTService
	trl         *revocation.InMemoryTRL
	publisher   *audit.MemoryPublisher
	service     *Service
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.users = user.New()
	s.memberships = membership.NewInMemory()
	s.catalog = catalog.New(place.NewInMemory(), list.NewInMemory(), s.memberships)
	s.tokens = token.NewJWTService("test-key", "waypoint-test", 15*time.Minute, 7*24*time.Hour)
	s.trl = revocation.NewInMemoryTRL()
	s.publisher = audit.NewMemoryPublisher()
	s.service = New(s.users, s.catalog, s.tokens, s.trl,
		WithBcryptCost(bcrypt.MinCost),
		WithAuditPublisher(s.publisher),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *IdentityServiceSuite) register(username, password string) *models.User {
	u, err := s.service.Register(s.ctx, username, password)
	s.Require().NoError(err)
	return u
}

func (s *IdentityServiceSuite) TestRegisterProvisionsDefaultLists() {
	u := s.register("jane", "correct horse")

	lists, err := s.catalog.Lists(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Len(lists, 2)
	s.Equal(catalogModels.DefaultListFavorites, lists[0].Name)
	s.Equal(catalogModels.DefaultListPlanned, lists[1].Name)
	for _, l := range lists {
		s.True(l.IsDefault)
		ids, err := s.memberships.PlaceIDsByList(s.ctx, l.ID)
		s.Require().NoError(err)
		s.Empty(ids)
	}

	events := s.publisher.ListByUser(u.ID)
	s.Require().Len(events, 1)
	s.Equal(audit.EventUserRegistered, events[0].Action)
}

func (s *IdentityServiceSuite) TestRegisterRejectsTakenUsername() {
	s.register("jane", "pw-1")
	_, err := s.service.Register(s.ctx, "jane", "pw-2")
	s.ErrorIs(err, models.ErrUsernameTaken)
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))
}

func (s *IdentityServiceSuite) TestRegisterValidation() {
	_, err := s.service.Register(s.ctx, "  ", "pw")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Register(s.ctx, "jane", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

type failingProvisioner struct{}

func (failingProvisioner) CreateDefaultLists(context.Context, id.UserID) ([]*catalogModels.List, error) {
	return nil, dErrors.Wrap(errors.New("disk full"), dErrors.CodeInternal, "failed to create default lists")
}

func (s *IdentityServiceSuite) TestRegisterFailsWhenListsCannotBeCreated() {
	svc := New(s.users, failingProvisioner{}, s.tokens, s.trl, WithBcryptCost(bcrypt.MinCost))
	_, err := svc.Register(s.ctx, "sam", "pw")
	s.Equal(dErrors.CodeInternal, dErrors.CodeOf(err))
}

func (s *IdentityServiceSuite) TestLogin() {
	registered := s.register("jane", "secret")

	s.Run("valid credentials issue a token pair", func() {
		u, pair, err := s.service.Login(s.ctx, "jane", "secret")
		s.Require().NoError(err)
		s.Equal(registered.ID, u.ID)
		s.NotEmpty(pair.AccessToken)
		s.NotEmpty(pair.RefreshToken)
		s.Equal("Bearer", pair.TokenType)

		claims, err := s.tokens.ValidateToken(pair.AccessToken)
		s.Require().NoError(err)
		s.Equal(token.TypeAccess, claims.TokenType)
		s.Equal(registered.ID.String(), claims.UserID)
	})

	s.Run("wrong password", func() {
		_, _, err := s.service.Login(s.ctx, "jane", "guess")
		s.ErrorIs(err, models.ErrInvalidCredentials)
	})

	s.Run("unknown user looks the same as a wrong password", func() {
		_, _, err := s.service.Login(s.ctx, "nobody", "secret")
		s.ErrorIs(err, models.ErrInvalidCredentials)
	})
}

func (s *IdentityServiceSuite) TestMe() {
	u := s.register("jane", "secret")
	found, err := s.service.Me(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("jane", found.Username)

	_, err = s.service.Me(s.ctx, id.NewUserID())
	s.ErrorIs(err, models.ErrUserNotFound)
}

func (s *IdentityServiceSuite) TestRefreshRotatesTokens() {
	s.register("jane", "secret")
	_, pair, err := s.service.Login(s.ctx, "jane", "secret")
	s.Require().NoError(err)

	_, rotated, err := s.service.Refresh(s.ctx, pair.RefreshToken)
	s.Require().NoError(err)
	s.NotEqual(pair.RefreshToken, rotated.RefreshToken)

	_, _, err = s.service.Refresh(s.ctx, pair.RefreshToken)
	s.ErrorIs(err, models.ErrInvalidRefreshToken)

	_, _, err = s.service.Refresh(s.ctx, rotated.RefreshToken)
	s.NoError(err)
}

func (s *IdentityServiceSuite) TestRefreshRejectsAccessTokens() {
	s.register("jane", "secret")
	_, pair, err := s.service.Login(s.ctx, "jane", "secret")
	s.Require().NoError(err)

	_, _, err = s.service.Refresh(s.ctx, pair.AccessToken)
	s.ErrorIs(err, models.ErrInvalidRefreshToken)

	_, _, err = s.service.Refresh(s.ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *IdentityServiceSuite) TestLogoutRevokesTokens() {
	u := s.register("jane", "secret")
	_, pair, err := s.service.Login(s.ctx, "jane", "secret")
	s.Require().NoError(err)

	access, err := s.tokens.ValidateToken(pair.AccessToken)
	s.Require().NoError(err)
	refresh, err := s.tokens.ValidateRefreshToken(pair.RefreshToken)
	s.Require().NoError(err)

	s.service.Logout(s.ctx, u.ID, access.ID, pair.RefreshToken)

	revoked, err := s.trl.IsTokenRevoked(s.ctx, access.ID)
	s.Require().NoError(err)
	s.True(revoked)
	revoked, err = s.trl.IsTokenRevoked(s.ctx, refresh.ID)
	s.Require().NoError(err)
	s.True(revoked)

	_, _, err = s.service.Refresh(s.ctx, pair.RefreshToken)
	s.ErrorIs(err, models.ErrInvalidRefreshToken)
}
