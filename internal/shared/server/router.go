package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/steppy/steppy-service/internal/shared/dto"
)

// Version is reported by /healthz.
const Version = "1.0.0"

// HealthCheck reports the status of each dependency keyed by name. Any value other than
// "healthy" turns the overall status to degraded.
type HealthCheck func(ctx context.Context) map[string]string

// Options configures NewRouter.
type Options struct {
	Service     string
	Health      HealthCheck
	Middlewares []func(http.Handler) http.Handler
}

// NewRouter returns a chi router pre-configured with default middleware and a health endpoint.
func NewRouter(opts Options, register func(r chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	for _, mw := range opts.Middlewares {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		started := time.Now()
		resp := dto.HealthResponse{Status: "healthy", Service: opts.Service, Version: Version}
		status := http.StatusOK
		if opts.Health != nil {
			resp.Services = opts.Health(req.Context())
			for _, state := range resp.Services {
				if state != "healthy" {
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
				}
			}
		}
		resp.Timestamp = started.UTC().Format(time.RFC3339)
		resp.ResponseTime = time.Since(started).String()
		writeJSON(w, status, resp)
	})

	if register != nil {
		register(r)
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
