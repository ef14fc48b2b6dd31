// Package ratelimit throttles requests per client with token buckets.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/steppy/steppy-service/internal/shared/auth"
	sharederrors "github.com/steppy/steppy-service/internal/shared/errors"
)

// Config holds limiter configuration. The default allows 100 requests per 15 minutes.
type Config struct {
	Limit rate.Limit
	Burst int
	// MaxClients bounds the limiter table; idle clients are dropped after IdleTTL.
	MaxClients int
	IdleTTL    time.Duration
}

// DefaultConfig mirrors a 100 requests / 15 minutes window.
func DefaultConfig() Config {
	return Config{
		Limit:      rate.Every(15 * time.Minute / 100),
		Burst:      100,
		MaxClients: 10000,
		IdleTTL:    15 * time.Minute,
	}
}

// Limiter owns the per-client limiter table.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	clients *expirable.LRU[string, *rate.Limiter]
}

// New builds a Limiter. Zero fields fall back to DefaultConfig.
func New(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}
	return &Limiter{
		cfg:     cfg,
		clients: expirable.NewLRU[string, *rate.Limiter](cfg.MaxClients, nil, cfg.IdleTTL),
	}
}

// Allow consumes a token for client.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	limiter, ok := l.clients.Get(client)
	if !ok {
		limiter = rate.NewLimiter(l.cfg.Limit, l.cfg.Burst)
	}
	// re-adding refreshes the idle expiry
	l.clients.Add(client, limiter)
	l.mu.Unlock()
	return limiter.Allow()
}

// Middleware rejects requests over the limit with 429. Probe endpoints are never limited.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz", "/metrics":
			next.ServeHTTP(w, r)
			return
		}

		if !l.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "60")
			sharederrors.Write(w, sharederrors.CodeRateLimited, "rate limit exceeded, please try again later", middleware.GetReqID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if user, ok := auth.UserFromContext(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
