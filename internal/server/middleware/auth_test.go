package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/deltasync/internal/server/handlers"
)

func testJWTConfig() handlers.JWTConfig {
	return handlers.JWTConfig{
		Secret:   []byte("test-secret-key"),
		TokenTTL: 15 * time.Minute,
	}
}

// peerHandler проверяет, что данные токена попали в контекст
func peerHandler(t *testing.T, expectedPeerID, expectedCollab string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		peerID, ok := handlers.GetPeerID(r.Context())
		require.True(t, ok, "peer_id should be in context")
		assert.Equal(t, expectedPeerID, peerID)

		collab, ok := handlers.GetCollaboration(r.Context())
		require.True(t, ok, "collaboration should be in context")
		assert.Equal(t, expectedCollab, collab)

		w.WriteHeader(http.StatusOK)
	}
}

func TestAuthMiddleware_Success(t *testing.T) {
	cfg := testJWTConfig()

	token, _, err := handlers.GenerateAccessToken(cfg, "node-b", "doc")
	require.NoError(t, err)

	handler := AuthMiddleware(setupTestLogger(), cfg)(peerHandler(t, "node-b", "doc"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/collab/doc/clock", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	cfg := testJWTConfig()

	otherToken, _, err := handlers.GenerateAccessToken(handlers.JWTConfig{
		Secret:   []byte("another-key"),
		TokenTTL: time.Minute,
	}, "node-b", "doc")
	require.NoError(t, err)

	expiredToken, _, err := handlers.GenerateAccessToken(handlers.JWTConfig{
		Secret:   cfg.Secret,
		TokenTTL: -time.Minute,
	}, "node-b", "doc")
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{name: "missing header", header: "", message: "missing token"},
		{name: "no bearer prefix", header: "Token abc", message: "invalid token format"},
		{name: "empty token", header: "Bearer ", message: "invalid token format"},
		{name: "garbage token", header: "Bearer garbage", message: "invalid token"},
		{name: "wrong key", header: "Bearer " + otherToken, message: "invalid token"},
		{name: "expired", header: "Bearer " + expiredToken, message: "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := AuthMiddleware(setupTestLogger(), cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/collab/doc/clock", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.message, decodeError(t, w).Message)
		})
	}
}

func TestAuthMiddleware_CaseInsensitiveBearer(t *testing.T) {
	cfg := testJWTConfig()
	token, _, err := handlers.GenerateAccessToken(cfg, "node-b", "doc")
	require.NoError(t, err)

	handler := AuthMiddleware(setupTestLogger(), cfg)(peerHandler(t, "node-b", "doc"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	called := false
	handler := AuthMiddleware(setupTestLogger(), handlers.JWTConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := handlers.GetPeerID(r.Context())
		assert.False(t, ok)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}
