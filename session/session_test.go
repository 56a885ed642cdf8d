package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeno035/todo-list-sync-client/models"
	"github.com/xeno035/todo-list-sync-client/session"
	"github.com/xeno035/todo-list-sync-client/testutil"
)

const testSecret = "test-secret"

func TestNewFromToken_ExtractsPrincipal(t *testing.T) {
	token, err := testutil.GenerateToken("user-1", "me@example.com", "Me", testSecret, time.Hour)
	require.NoError(t, err)

	identity, err := session.NewFromToken(token, testSecret)
	require.NoError(t, err)

	s, ok := identity.Current()
	require.True(t, ok)
	assert.Equal(t, "user-1", s.UID)
	assert.Equal(t, "me@example.com", s.Email)
	assert.Equal(t, "Me", s.Name)

	got, err := identity.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, got, "the signed token is the bearer credential")
}

func TestNewFromToken_Rejections(t *testing.T) {
	expired, err := testutil.GenerateToken("user-1", "me@example.com", "Me", testSecret, -time.Minute)
	require.NoError(t, err)
	wrongSecret, err := testutil.GenerateToken("user-1", "me@example.com", "Me", "another-secret", time.Hour)
	require.NoError(t, err)
	noEmail, err := testutil.GenerateToken("user-1", "", "Me", testSecret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired token", token: expired},
		{name: "wrong secret", token: wrongSecret},
		{name: "garbage", token: "not.a.token"},
		{name: "missing email claim", token: noEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := session.NewFromToken(tt.token, testSecret)
			assert.Error(t, err)
		})
	}
}

func TestSignOut_EndsSession(t *testing.T) {
	token, err := testutil.GenerateToken("user-1", "me@example.com", "Me", testSecret, time.Hour)
	require.NoError(t, err)
	identity, err := session.NewFromToken(token, testSecret)
	require.NoError(t, err)

	identity.SignOut()

	_, ok := identity.Current()
	assert.False(t, ok)

	_, err = identity.Token(context.Background())
	var authErr *models.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestTokenSource_ConsultedPerCall(t *testing.T) {
	calls := 0
	source := func(ctx context.Context) (string, error) {
		calls++
		return "fresh-token", nil
	}
	identity := session.NewIdentity(&models.Session{UID: "u", Email: "u@example.com"}, source)

	for i := 0; i < 3; i++ {
		_, err := identity.Token(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls, "tokens are short-lived, never cached across calls")
}
