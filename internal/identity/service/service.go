package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"waypoint/internal/audit"
	catalogModels "waypoint/internal/catalog/models"
	"waypoint/internal/identity/models"
	"waypoint/internal/identity/token"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/middleware/metadata"
	"waypoint/pkg/platform/sentinel"
	"waypoint/pkg/platform/tx"
	"waypoint/pkg/requestcontext"
)

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// ListProvisioner creates the default lists of a new account. It runs inside
// the registration transaction.
type ListProvisioner interface {
	CreateDefaultLists(ctx context.Context, userID id.UserID) ([]*catalogModels.List, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID) (*token.Issued, error)
	GenerateRefreshToken(userID id.UserID) (*token.Issued, error)
	ValidateRefreshToken(tokenString string) (*token.Claims, error)
	AccessTTL() time.Duration
}

type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service registers accounts and manages their sessions.
type Service struct {
	users          UserStore
	lists          ListProvisioner
	tokens         TokenIssuer
	revocations    RevocationList
	tx             tx.Runner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	bcryptCost     int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

func New(users UserStore, lists ListProvisioner, tokens TokenIssuer, revocations RevocationList, opts ...Option) *Service {
	s := &Service{
		users:       users,
		lists:       lists,
		tokens:      tokens,
		revocations: revocations,
		logger:      slog.Default(),
		bcryptCost:  bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewMemoryRunner()
	}
	return s
}

// Register creates an account and its Favorites and Planned lists in one
// unit of work.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	if password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if len(password) > maxPasswordBytes {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at most 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	user, err := models.NewUser(username, hash, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "username is required")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return models.ErrUsernameTaken
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
		}
		if _, err := s.lists.CreateDefaultLists(ctx, user.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventUserRegistered, user.ID, "username", user.Username)
	return user, nil
}

// Login verifies credentials and issues a fresh token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, *models.TokenPair, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logAudit(ctx, audit.EventLoginFailed, id.UserID{}, "username", username)
			return nil, nil, models.ErrInvalidCredentials
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		s.logAudit(ctx, audit.EventLoginFailed, user.ID, "username", username)
		return nil, nil, models.ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	s.logAudit(ctx, audit.EventUserLoggedIn, user.ID)
	return user, pair, nil
}

// Me returns the authenticated user.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrUserNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// Refresh exchanges a valid refresh token for a new pair. The presented
// refresh token is revoked so it cannot be replayed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.User, *models.TokenPair, error) {
	if refreshToken == "" {
		return nil, nil, dErrors.New(dErrors.CodeUnauthorized, "Missing refresh token")
	}
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, models.ErrInvalidRefreshToken
	}
	revoked, err := s.revocations.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
	}
	if revoked {
		return nil, nil, models.ErrInvalidRefreshToken
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, nil, models.ErrInvalidRefreshToken
	}
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	s.revoke(ctx, claims.ID, remaining(claims, requestcontext.Now(ctx)))
	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout revokes the current access token and, when it validates, the
// refresh token.
func (s *Service) Logout(ctx context.Context, userID id.UserID, accessJTI, refreshToken string) {
	if accessJTI != "" {
		s.revoke(ctx, accessJTI, s.tokens.AccessTTL())
	}
	if refreshToken != "" {
		if claims, err := s.tokens.ValidateRefreshToken(refreshToken); err == nil {
			s.revoke(ctx, claims.ID, remaining(claims, requestcontext.Now(ctx)))
		}
	}
	if !userID.IsNil() {
		s.logAudit(ctx, audit.EventUserLoggedOut, userID)
	}
}

func (s *Service) issuePair(userID id.UserID) (*models.TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue refresh token")
	}
	return &models.TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Token,
		TokenType:        "Bearer",
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// revoke is best effort; a failure leaves the token valid until it expires.
func (s *Service) revoke(ctx context.Context, jti string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := s.revocations.RevokeToken(ctx, jti, ttl); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke token",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func remaining(claims *token.Claims, now time.Time) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Sub(now)
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, userID id.UserID, attributes ...string) {
	requestID := requestcontext.RequestID(ctx)
	args := []any{"log_type", "audit", "user_id", userID.String()}
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	attrs := make(map[string]string, len(attributes)/2)
	for i := 0; i+1 < len(attributes); i += 2 {
		attrs[attributes[i]] = attributes[i+1]
		args = append(args, attributes[i], attributes[i+1])
	}
	if s.auditPublisher == nil {
		s.logger.InfoContext(ctx, string(action), args...)
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:     action,
		UserID:     userID,
		Subject:    userID.String(),
		RequestID:  requestID,
		ClientIP:   metadata.GetClientIP(ctx),
		Attributes: attrs,
		Timestamp:  requestcontext.Now(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"action", string(action),
			"error", err,
			"request_id", requestID,
		)
	}
}
