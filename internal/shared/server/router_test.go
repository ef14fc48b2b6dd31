package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steppy/steppy-service/internal/shared/dto"
)

func TestHealthzHealthy(t *testing.T) {
	r := NewRouter(Options{
		Service: "steppy",
		Health: func(context.Context) map[string]string {
			return map[string]string{"database": "healthy"}
		},
	}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body dto.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "steppy", body.Service)
	assert.Equal(t, Version, body.Version)
	assert.Equal(t, "healthy", body.Services["database"])
	assert.NotEmpty(t, body.ResponseTime)
}

func TestHealthzDegraded(t *testing.T) {
	r := NewRouter(Options{
		Service: "steppy",
		Health: func(context.Context) map[string]string {
			return map[string]string{"database": "unhealthy"}
		},
	}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
}

func TestRegisterAndMiddlewares(t *testing.T) {
	var seen bool
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = true
			next.ServeHTTP(w, r)
		})
	}
	r := NewRouter(Options{Service: "steppy", Middlewares: []func(http.Handler) http.Handler{mw}}, func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, seen)
}
