package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/steppy/steppy-service/internal/shared/auth"
)

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func tight() *Limiter {
	return New(Config{Limit: rate.Every(time.Hour), Burst: 2})
}

func do(h http.Handler, path, remote string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestMiddlewareLimitsPerClient(t *testing.T) {
	h := tight().Middleware(ok())

	assert.Equal(t, http.StatusOK, do(h, "/v1/today", "10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, do(h, "/v1/today", "10.0.0.1:1235"))
	assert.Equal(t, http.StatusTooManyRequests, do(h, "/v1/today", "10.0.0.1:1236"))

	assert.Equal(t, http.StatusOK, do(h, "/v1/today", "10.0.0.2:1234"))
}

func TestMiddlewareSkipsProbes(t *testing.T) {
	h := tight().Middleware(ok())
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(h, "/healthz", "10.0.0.1:1"))
		assert.Equal(t, http.StatusOK, do(h, "/metrics", "10.0.0.1:1"))
	}
}

func TestClientKeyPrefersAuthenticatedUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:99"
	assert.Equal(t, "ip:10.0.0.1", clientKey(req))

	req = req.WithContext(auth.WithUser(req.Context(), auth.AuthenticatedUser{UserID: "u1"}))
	assert.Equal(t, "user:u1", clientKey(req))
}

func TestDefaultConfig(t *testing.T) {
	l := New(Config{})
	assert.Equal(t, 100, l.cfg.Burst)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("c"))
	}
	assert.False(t, l.Allow("c"))
}
