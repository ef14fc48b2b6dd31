package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	sharederrors "github.com/steppy/steppy-service/internal/shared/errors"
)

// Mode selects how bearer tokens are verified.
type Mode string

const (
	// ModeClerk verifies Clerk session JWTs against a JWKS endpoint.
	ModeClerk Mode = "clerk"
	// ModeNoop accepts any token and uses it as the user id. Local development and tests only.
	ModeNoop Mode = "noop"
)

// Config selects and configures a Verifier.
type Config struct {
	Mode     Mode
	JWKSURL  string
	Audience string
	Issuer   string
}

// AuthenticatedUser is the subject of a verified token.
type AuthenticatedUser struct {
	UserID    string
	SessionID string
	ExpiresAt int64
	Token     string
}

// Verifier turns a bearer token into an AuthenticatedUser.
type Verifier interface {
	Verify(ctx context.Context, token string) (AuthenticatedUser, error)
}

var (
	errNoCredentials  = errors.New("authorization header missing")
	errBadCredentials = errors.New("authorization header is malformed")
)

type userKey struct{}

// Option adjusts Middleware.
type Option func(*authenticator)

// AllowAnonymous passes requests that carry no Authorization header. A header that is
// present but malformed or rejected by the verifier still fails with 401.
func AllowAnonymous() Option {
	return func(a *authenticator) { a.anonymous = true }
}

type authenticator struct {
	verifier  Verifier
	anonymous bool
	next      http.Handler
}

// Middleware attaches the verified user to the request context. A nil verifier disables it.
func Middleware(verifier Verifier, opts ...Option) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		a := &authenticator{verifier: verifier, next: next}
		for _, opt := range opts {
			opt(a)
		}
		return a
	}
}

func (a *authenticator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r.Header.Get("Authorization"))
	switch {
	case errors.Is(err, errNoCredentials) && a.anonymous:
		a.next.ServeHTTP(w, r)
		return
	case err != nil:
		a.reject(w, r, err.Error())
		return
	}

	user, err := a.verifier.Verify(r.Context(), token)
	if err != nil {
		a.reject(w, r, "invalid credentials")
		return
	}
	a.next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
}

func (a *authenticator) reject(w http.ResponseWriter, r *http.Request, message string) {
	sharederrors.Write(w, sharederrors.CodeUnauthorized, message, middleware.GetReqID(r.Context()))
}

// bearerToken extracts the token of a "Bearer <token>" header value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", errBadCredentials
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errBadCredentials
	}
	return token, nil
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user AuthenticatedUser) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user stored by Middleware or WithUser.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	user, ok := ctx.Value(userKey{}).(AuthenticatedUser)
	return user, ok
}

// NewVerifier builds the Verifier for cfg.Mode. An empty mode means noop.
func NewVerifier(cfg Config) (Verifier, error) {
	switch cfg.Mode {
	case ModeClerk:
		return newClerkVerifier(cfg)
	case ModeNoop, "":
		return noopVerifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}
