package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rainbowtourguides/backend/internal/middleware"
)

func TestRateLimiter_BurstThenReject(t *testing.T) {
	h := middleware.NewRateLimiter(0.001, 2).Handler(trivialHandler)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/guides", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_PerAddress(t *testing.T) {
	h := middleware.NewRateLimiter(0.001, 1).Handler(trivialHandler)

	for _, addr := range []string{"203.0.113.7:1", "203.0.113.8:1"} {
		req := httptest.NewRequest(http.MethodGet, "/api/guides", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, addr)
	}

	// Same host, different port: still the same client.
	req := httptest.NewRequest(http.MethodGet, "/api/guides", nil)
	req.RemoteAddr = "203.0.113.7:2"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
