package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_BurstThen429(t *testing.T) {
	rl := NewRateLimiter(3)
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusNoContent, do("10.0.0.1:5000").Code, "request %d", i)
	}

	rec := do("10.0.0.1:5001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "port does not matter")
	assert.Equal(t, "20", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"message":"Too many requests"}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, do("10.0.0.2:5000").Code, "other clients are unaffected")
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(10)
	defer rl.Stop()

	rl.get("10.0.0.1")
	rl.get("10.0.0.2")
	require.Equal(t, 2, rl.Clients())

	rl.sweep(time.Now().Add(-time.Minute))
	assert.Equal(t, 2, rl.Clients(), "recently used entries are kept")

	rl.sweep(time.Now().Add(time.Second))
	assert.Equal(t, 0, rl.Clients())
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::1]:8080"
	assert.Equal(t, "::1", clientIP(req))

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
