package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-service/internal/scope"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

// Every case here must fail closed before any profile lookup happens,
// so the service is constructed without a database.
func TestResolveSessionFailsClosed(t *testing.T) {
	svc := NewIdentityService(nil, testSecret)
	ctx := context.Background()

	t.Run("empty token", func(t *testing.T) {
		_, err := svc.ResolveSession(ctx, "")
		assert.ErrorIs(t, err, scope.ErrNotAuthenticated)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ResolveSession(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, scope.ErrNotAuthenticated)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signedToken(t, "other-secret", uuid.New().String())
		_, err := svc.ResolveSession(ctx, token)
		assert.ErrorIs(t, err, scope.ErrNotAuthenticated)
	})

	t.Run("expired token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": uuid.New().String(),
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		s, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = svc.ResolveSession(ctx, s)
		assert.ErrorIs(t, err, scope.ErrNotAuthenticated)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		s, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = svc.ResolveSession(ctx, s)
		assert.ErrorIs(t, err, scope.ErrNotAuthenticated)
	})

	t.Run("non-uuid subject", func(t *testing.T) {
		token := signedToken(t, testSecret, "user-42")
		_, err := svc.ResolveSession(ctx, token)
		assert.ErrorIs(t, err, scope.ErrNotAuthenticated)
	})

	t.Run("unsigned token is rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": uuid.New().String(),
		})
		s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ResolveSession(ctx, s)
		assert.ErrorIs(t, err, scope.ErrNotAuthenticated)
	})
}

func TestResolveAPIKeyEmpty(t *testing.T) {
	svc := NewIdentityService(nil, testSecret)

	_, err := svc.ResolveAPIKey(context.Background(), "")
	assert.ErrorIs(t, err, scope.ErrNotAuthenticated)
}
