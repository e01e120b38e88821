package handler

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"waypoint/internal/identity/models"
	"waypoint/internal/platform/metrics"
	"waypoint/internal/platform/middleware"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/httputil"
	"waypoint/pkg/platform/middleware/auth"
	"waypoint/pkg/requestcontext"
)

const RefreshTokenCookie = "refresh_token"

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Service defines the account and session operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, *models.TokenPair, error)
	Me(ctx context.Context, userID id.UserID) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*models.User, *models.TokenPair, error)
	Logout(ctx context.Context, userID id.UserID, accessJTI, refreshToken string)
}

// CookieConfig controls the session cookies.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Handler serves the /auth endpoints.
type Handler struct {
	logger      *slog.Logger
	identity    Service
	metrics     *metrics.Metrics
	validator   auth.JWTValidator
	requireAuth func(http.Handler) http.Handler
	cookies     CookieConfig
}

// New creates an identity Handler. validator reads the access token on
// logout, where authentication is optional.
func New(
	identity Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	validator auth.JWTValidator,
	requireAuth func(http.Handler) http.Handler,
	cookies CookieConfig) *Handler {
	return &Handler{
		logger:      logger,
		identity:    identity,
		metrics:     metrics,
		validator:   validator,
		requireAuth: requireAuth,
		cookies:     cookies,
	}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))

		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/refresh", h.handleRefresh)
		r.Post("/auth/logout", h.handleLogout)
		r.With(h.requireAuth).Get("/auth/me", h.handleMe)
	})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *credentialsRequest) validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if !govalidator.StringLength(r.Username, "3", "50") || !usernamePattern.MatchString(r.Username) {
		return dErrors.New(dErrors.CodeValidation, "username must be 3-50 letters, digits, '.', '_' or '-'")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

type userResponse struct {
	ID       id.UserID `json:"id"`
	Username string    `json:"username"`
}

type sessionResponse struct {
	Message string            `json:"message"`
	User    userResponse      `json:"user"`
	Tokens  *models.TokenPair `json:"tokens,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req credentialsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.identity.Register(ctx, req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, "failed to register user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sessionResponse{
		Message: "User registered",
		User:    toUserResponse(user),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req credentialsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "username and password are required"))
		return
	}

	user, pair, err := h.identity.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, "login failed", err)
		return
	}
	h.setAuthCookies(w, pair)
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{
		Message: "Logged in",
		User:    toUserResponse(user),
		Tokens:  pair,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.identity.Me(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeServiceError(w, r, "failed to load current user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refreshToken := ""
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		refreshToken = c.Value
	}

	user, pair, err := h.identity.Refresh(ctx, refreshToken)
	if err != nil {
		h.writeServiceError(w, r, "token refresh failed", err)
		return
	}
	h.setAuthCookies(w, pair)
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{
		Message: "Token refreshed",
		User:    toUserResponse(user),
		Tokens:  pair,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		userID    id.UserID
		accessJTI string
	)
	if token := accessToken(r); token != "" {
		if claims, err := h.validator.ValidateAccessToken(token); err == nil {
			accessJTI = claims.JTI
			if parsed, err := id.ParseUserID(claims.UserID); err == nil {
				userID = parsed
			}
		}
	}
	refreshToken := ""
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		refreshToken = c.Value
	}

	h.identity.Logout(ctx, userID, accessJTI, refreshToken)
	h.clearAuthCookies(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func accessToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if c, err := r.Cookie(auth.AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) setAuthCookies(w http.ResponseWriter, pair *models.TokenPair) {
	http.SetCookie(w, h.cookie(auth.AccessTokenCookie, pair.AccessToken, h.cookies.AccessTTL))
	http.SetCookie(w, h.cookie(RefreshTokenCookie, pair.RefreshToken, h.cookies.RefreshTTL))
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{auth.AccessTokenCookie, RefreshTokenCookie} {
		c := h.cookie(name, "", 0)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h *Handler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
