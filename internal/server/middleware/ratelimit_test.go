package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(0.001, 3, setupTestLogger())
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "request %d within burst", i+1)
	}
	assert.False(t, limiter.Allow("10.0.0.1"), "burst exhausted")

	assert.True(t, limiter.Allow("10.0.0.2"), "keys are limited independently")
	assert.Equal(t, 2, limiter.size())
}

func TestRateLimiter_Refill(t *testing.T) {
	limiter := NewRateLimiter(100, 1, setupTestLogger())
	defer limiter.Stop()

	assert.True(t, limiter.Allow("k"))
	assert.False(t, limiter.Allow("k"))

	assert.Eventually(t, func() bool {
		return limiter.Allow("k")
	}, time.Second, 5*time.Millisecond)
}

func TestRateLimiter_CleanupIdle(t *testing.T) {
	limiter := NewRateLimiter(1, 1, setupTestLogger())
	defer limiter.Stop()

	limiter.Allow("old")
	limiter.Allow("fresh")

	limiter.mu.Lock()
	limiter.visitors["old"].lastSeen = time.Now().Add(-2 * limiter.idleTTL)
	limiter.mu.Unlock()

	limiter.cleanupIdle(time.Now())
	assert.Equal(t, 1, limiter.size())
}

func TestRateLimiter_StopIdempotent(t *testing.T) {
	limiter := NewRateLimiter(1, 1, setupTestLogger())
	assert.NotPanics(t, func() {
		limiter.Stop()
		limiter.Stop()
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	mw, limiter := RateLimitMiddleware(0.001, 2, setupTestLogger())
	defer limiter.Stop()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/collab/doc/clock", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddleware_PortIgnored(t *testing.T) {
	mw, limiter := RateLimitMiddleware(0.001, 1, setupTestLogger())
	defer limiter.Stop()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.RemoteAddr = "192.0.2.1:1000"
	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.RemoteAddr = "192.0.2.1:2000"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, first)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, second)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "rate limit exceeded")
}

func TestRateLimitByPathMiddleware(t *testing.T) {
	defaultLimiter := NewRateLimiter(0.001, 5, setupTestLogger())
	defer defaultLimiter.Stop()

	limits := []PathRateLimit{{Path: "/api/v1/auth/token", RPS: 0.001, Burst: 1}}
	handler := RateLimitByPathMiddleware(limits, defaultLimiter, setupTestLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	serve := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "192.0.2.7:5555"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serve("/api/v1/auth/token"))
	assert.Equal(t, http.StatusTooManyRequests, serve("/api/v1/auth/token"))
	assert.Equal(t, http.StatusOK, serve("/api/v1/collab/doc/pull"), "other paths use the default limiter")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{name: "X-Forwarded-For single", headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, remoteAddr: "10.0.0.1:1", expected: "203.0.113.5"},
		{name: "X-Forwarded-For chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"}, remoteAddr: "10.0.0.1:1", expected: "203.0.113.5"},
		{name: "X-Real-IP", headers: map[string]string{"X-Real-IP": "198.51.100.9"}, remoteAddr: "10.0.0.1:1", expected: "198.51.100.9"},
		{name: "RemoteAddr with port", remoteAddr: "192.0.2.1:4321", expected: "192.0.2.1"},
		{name: "RemoteAddr without port", remoteAddr: "192.0.2.1", expected: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, getClientIP(req))
		})
	}
}
