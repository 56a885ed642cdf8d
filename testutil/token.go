package testutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xeno035/todo-list-sync-client/session"
)

// GenerateToken signs a session token for tests and local runs, in the shape
// the identity provider issues.
func GenerateToken(uid, email, name, secret string, ttl time.Duration) (string, error) {
	claims := &session.Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
