package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of an access token without verifying the
// signature. The backend verifies tokens on every call; the server only needs
// to know when to refresh.
func TokenExpiry(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, errors.New("empty token")
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}

// NeedsRefresh reports whether a token expires within leeway of now.
// Tokens whose expiry cannot be read are treated as expired.
func NeedsRefresh(token string, now time.Time, leeway time.Duration) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		return true
	}
	return !now.Add(leeway).Before(exp)
}
