package token

import (
	dErrors "waypoint/pkg/domain-errors"
	authmw "waypoint/pkg/platform/middleware/auth"
)

// ToMiddlewareClaims maps token claims to the auth middleware's view.
func ToMiddlewareClaims(claims *Claims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		UserID: claims.UserID,
		JTI:    claims.ID,
	}
}

// MiddlewareAdapter lets RequireAuth validate access tokens. Refresh tokens
// are rejected.
type MiddlewareAdapter struct {
	service *JWTService
}

func NewMiddlewareAdapter(service *JWTService) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateAccessToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TypeAccess {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not an access token")
	}
	return ToMiddlewareClaims(claims), nil
}
