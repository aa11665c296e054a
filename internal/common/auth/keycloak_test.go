package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "greencrew/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeycloakServer(t *testing.T, tokenCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/greencrew/protocol/openid-connect/userinfo", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sub":"user-1","email":"super@course.example"}`))
		case "Bearer flaky":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	mux.HandleFunc("/realms/greencrew/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"admin-token","expires_in":300,"token_type":"Bearer"}`))
	})
	mux.HandleFunc("/admin/realms/greencrew/users/user-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer admin-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"user-1","email":"super@course.example","enabled":true}`))
	})
	mux.HandleFunc("/admin/realms/greencrew/users/ghost", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return httptest.NewServer(mux)
}

func TestIdentify(t *testing.T) {
	var calls int32
	srv := newKeycloakServer(t, &calls)
	defer srv.Close()
	client := NewKeycloakClient(srv.URL+"/", "greencrew", "api", "secret", time.Second)

	tests := []struct {
		name  string
		token string
		code  apperrors.ErrorCode
	}{
		{"valid token", "good", ""},
		{"missing token", "", apperrors.ErrCodeAuthentication},
		{"rejected token", "expired", apperrors.ErrCodeAuthentication},
		{"provider down", "flaky", apperrors.ErrCodeIdentityProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := client.Identify(context.Background(), tt.token)
			if tt.code == "" {
				require.NoError(t, err)
				assert.Equal(t, &Identity{ID: "user-1", Email: "super@course.example"}, id)
				return
			}
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestIdentify_TransientFailureIsRetryable(t *testing.T) {
	var calls int32
	srv := newKeycloakServer(t, &calls)
	defer srv.Close()
	client := NewKeycloakClient(srv.URL, "greencrew", "api", "secret", time.Second)

	_, err := client.Identify(context.Background(), "flaky")

	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.True(t, stdErr.Retryable)
}

func TestGetUser_CachesAdminToken(t *testing.T) {
	var calls int32
	srv := newKeycloakServer(t, &calls)
	defer srv.Close()
	client := NewKeycloakClient(srv.URL, "greencrew", "api", "secret", time.Second)

	user, err := client.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "super@course.example", user.Email)

	_, err = client.GetUser(context.Background(), "ghost")
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
