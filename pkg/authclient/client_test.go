package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/bloghive/auth-service/pkg/errors"
)

func TestValidateCredentialsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/auth/validate", r.URL.Path)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "alice", creds["username"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": Identity{ID: 1, Username: "alice", Email: "a@x.com", Role: "USER"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL+"/api/v1", time.Second)
	identity, err := client.ValidateCredentials(context.Background(), "alice", "pw1234")
	require.NoError(t, err)
	assert.Equal(t, int64(1), identity.ID)
	assert.Equal(t, "alice", identity.Username)
}

func TestValidateCredentialsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(srv.URL+"/api/v1", time.Second)
	_, err := client.ValidateCredentials(context.Background(), "alice", "wrong")

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestValidateCredentialsUnreachable(t *testing.T) {
	// A closed server guarantees a transport error, not an HTTP status.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := New(srv.URL+"/api/v1", 500*time.Millisecond)
	_, err := client.ValidateCredentials(context.Background(), "alice", "pw1234")

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrServiceUnavailable.Code, appErr.Code)
	assert.NotEqual(t, http.StatusUnauthorized, appErr.Status)
}

func TestValidateCredentialsTimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		srv.Close()
	}()

	client := New(srv.URL+"/api/v1", 50*time.Millisecond)
	_, err := client.ValidateCredentials(context.Background(), "alice", "pw1234")

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrServiceUnavailable.Code, appErr.Code)
}

func TestGetUserByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/users/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": Identity{ID: 7, Username: "bob", Email: "b@x.com", Role: "ADMIN"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL+"/api/v1", time.Second)
	identity, err := client.GetUserByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "bob", identity.Username)
}

func TestGetUserByUsernameNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL+"/api/v1", time.Second)
	_, err := client.GetUserByUsername(context.Background(), "ghost")

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
