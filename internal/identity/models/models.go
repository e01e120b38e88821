package models

import (
	"strings"
	"time"

	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
)

// User is an account holder. Usernames are unique.
type User struct {
	ID           id.UserID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser builds an unsaved user with a fresh id.
func NewUser(username string, passwordHash []byte, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username is required")
	}
	if len(passwordHash) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash is required")
	}
	return &User{
		ID:           id.NewUserID(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}, nil
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

var (
	ErrUsernameTaken       = dErrors.New(dErrors.CodeConflict, "Username already taken")
	ErrInvalidCredentials  = dErrors.New(dErrors.CodeUnauthorized, "Invalid credentials")
	ErrUserNotFound        = dErrors.New(dErrors.CodeNotFound, "User not found")
	ErrInvalidRefreshToken = dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired refresh token")
)
