package remote

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaladesignco/site-engine/pkg/apperrors"
)

func TestSignInSuccess(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer","expires_in":3600,"user":{"email":"admin@example.com"}}`))
	})

	session, err := client.SignIn(context.Background(), "admin@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", session.AccessToken)
	assert.Equal(t, "admin@example.com", session.User.Email)
}

func TestSignInRejectedCredentials(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})

	_, err := client.SignIn(context.Background(), "admin@example.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestSignInProviderDown(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.SignIn(context.Background(), "admin@example.com", "secret")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestCurrentUserResolvesToken(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"email":"admin@example.com"}`))
	})

	user, err := client.CurrentUser(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
}

func TestCurrentUserExpiredToken(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.CurrentUser(context.Background(), "stale")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestSignOutSwallowsFailures(t *testing.T) {
	client, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	assert.NoError(t, client.SignOut(context.Background(), "tok-123"))
}
