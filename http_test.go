package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRouteAuthenticator(t *testing.T) (*identity.RouteAuthenticator, *identity.Auther) {
	t.Helper()
	repo := NewMockRepositoryManager()
	auther := identity.NewAuthenticator(repo, newTestConfig())
	httpAuth, err := identity.NewHTTPAuthenticator(auther, newTestConfig())
	require.NoError(t, err)
	return httpAuth, auther
}

func TestProtectedRoute(t *testing.T) {
	accountID := uuid.New()

	t.Run("valid bearer token reaches the handler", func(t *testing.T) {
		httpAuth, auther := newRouteAuthenticator(t)

		pair, err := auther.TokenService().IssuePair(accountID.String(), "pepe.rone@example.com", false)
		require.NoError(t, err)

		mockCtx := &MockContext{}
		mockCtx.On("Header", "Authorization").Return("Bearer " + pair.AccessToken)
		mockCtx.On("Locals", "claims", mock.Anything).Return(nil)
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("SetContext", mock.Anything).Return()

		called := false
		err = httpAuth.ProtectedRoute()(passthroughHandler(&called))(mockCtx)

		require.NoError(t, err)
		assert.True(t, called)
		mockCtx.AssertCalled(t, "Locals", "claims", mock.Anything)
		mockCtx.AssertCalled(t, "SetContext", mock.Anything)
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		httpAuth, _ := newRouteAuthenticator(t)

		mockCtx := &MockContext{}
		mockCtx.On("Header", "Authorization").Return("")
		payload := expectErrorJSON(t, mockCtx, 401)

		called := false
		err := httpAuth.ProtectedRoute()(passthroughHandler(&called))(mockCtx)

		require.NoError(t, err)
		assert.False(t, called)
		assert.Equal(t, identity.TextCodeTokenMalformed, textCode(*payload))
	})

	t.Run("wrong scheme is unauthorized", func(t *testing.T) {
		httpAuth, _ := newRouteAuthenticator(t)

		mockCtx := &MockContext{}
		mockCtx.On("Header", "Authorization").Return("Basic dXNlcjpwYXNz")
		payload := expectErrorJSON(t, mockCtx, 401)

		called := false
		err := httpAuth.ProtectedRoute()(passthroughHandler(&called))(mockCtx)

		require.NoError(t, err)
		assert.False(t, called)
		assert.Equal(t, identity.TextCodeTokenMalformed, textCode(*payload))
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		httpAuth, _ := newRouteAuthenticator(t)
		cfg := newTestConfig()

		now := time.Now()
		claims := &identity.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    cfg.GetIssuer(),
				Subject:   accountID.String(),
				Audience:  jwt.ClaimStrings(cfg.GetAudience()),
				IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
			},
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
			SignedString([]byte(cfg.GetSigningKey()))
		require.NoError(t, err)

		mockCtx := &MockContext{}
		mockCtx.On("Header", "Authorization").Return("Bearer " + raw)
		payload := expectErrorJSON(t, mockCtx, 401)

		called := false
		err = httpAuth.ProtectedRoute()(passthroughHandler(&called))(mockCtx)

		require.NoError(t, err)
		assert.False(t, called)
		assert.Equal(t, identity.TextCodeTokenExpired, textCode(*payload))
	})

	t.Run("tampered token is unauthorized", func(t *testing.T) {
		httpAuth, auther := newRouteAuthenticator(t)

		pair, err := auther.TokenService().IssuePair(accountID.String(), "pepe.rone@example.com", false)
		require.NoError(t, err)

		mockCtx := &MockContext{}
		mockCtx.On("Header", "Authorization").Return("Bearer " + pair.AccessToken + "tampered")
		payload := expectErrorJSON(t, mockCtx, 401)

		called := false
		err = httpAuth.ProtectedRoute()(passthroughHandler(&called))(mockCtx)

		require.NoError(t, err)
		assert.False(t, called)
		assert.Equal(t, identity.TextCodeTokenMalformed, textCode(*payload))
	})
}
