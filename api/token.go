package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expired reports whether token is a JWT whose expiry is already past.
//
// Tokens are opaque to this client: signatures are never checked here, and
// validation authority stays with the backend's /api/auth/me. This is only
// a local hint that lets the session manager skip a doomed network round
// trip. A token that does not parse as a JWT, or carries no exp claim,
// reports false and goes to the network as usual.
func Expired(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
