// Package session holds the authenticated principal and hands out bearer
// tokens for outgoing requests. The identity provider issues the tokens; this
// package only parses and carries them.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xeno035/todo-list-sync-client/models"
)

// Claims is the token payload the identity provider signs.
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// TokenSource yields a fresh bearer token. It is consulted on every request
// because tokens are short-lived; callers must not cache the result.
type TokenSource func(ctx context.Context) (string, error)

// StaticTokenSource returns a source that always yields the same token.
func StaticTokenSource(token string) TokenSource {
	return func(ctx context.Context) (string, error) {
		return token, nil
	}
}

// Identity is the current session plus the token source attached to it.
// SignOut clears both; afterwards Current reports no session.
type Identity struct {
	mu      sync.RWMutex
	session *models.Session
	source  TokenSource
}

// NewIdentity builds an identity for an already-resolved session.
func NewIdentity(s *models.Session, source TokenSource) *Identity {
	return &Identity{session: s, source: source}
}

// NewFromToken validates the token against the shared secret, extracts the
// principal from its claims and binds the token as a static source.
func NewFromToken(token, secret string) (*Identity, error) {
	claims, err := parseToken(token, secret)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("token carries no email claim")
	}

	s := &models.Session{
		UID:     claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}
	return NewIdentity(s, StaticTokenSource(token)), nil
}

// Current returns the active session, if any.
func (i *Identity) Current() (*models.Session, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.session, i.session != nil
}

// Token acquires a fresh bearer token for an outgoing request.
func (i *Identity) Token(ctx context.Context) (string, error) {
	i.mu.RLock()
	source := i.source
	i.mu.RUnlock()

	if source == nil {
		return "", &models.AuthorizationError{Op: "token"}
	}
	return source(ctx)
}

// SignOut ends the session. Subsequent token requests fail until a new
// session is established.
func (i *Identity) SignOut() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.session = nil
	i.source = nil
}

func parseToken(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("token has expired")
	}
	return claims, nil
}
