package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	jwksRefreshInterval = 10 * time.Minute
	clockSkew           = 5 * time.Second
)

// clerkClaims are the registered claims plus Clerk's session id.
type clerkClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid,omitempty"`
}

// clerkVerifier checks RS256 session tokens against the keys published at a JWKS URL.
type clerkVerifier struct {
	keys   *keyfunc.JWKS
	parser *jwt.Parser
}

func newClerkVerifier(cfg Config) (Verifier, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("clerk JWKS URL is required")
	}

	keys, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		RefreshInterval:   jwksRefreshInterval,
		RefreshUnknownKID: true,
		// a failed refresh keeps the previous key set
		RefreshErrorHandler: func(error) {},
	})
	if err != nil {
		return nil, fmt.Errorf("load JWKS: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(clockSkew),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256"}),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &clerkVerifier{keys: keys, parser: jwt.NewParser(opts...)}, nil
}

func (v *clerkVerifier) Verify(_ context.Context, token string) (AuthenticatedUser, error) {
	var claims clerkClaims
	if _, err := v.parser.ParseWithClaims(token, &claims, v.keys.Keyfunc); err != nil {
		return AuthenticatedUser{}, fmt.Errorf("verify token: %w", err)
	}
	if claims.Subject == "" {
		return AuthenticatedUser{}, errors.New("token missing subject claim")
	}

	user := AuthenticatedUser{UserID: claims.Subject, SessionID: claims.SessionID, Token: token}
	if claims.ExpiresAt != nil {
		user.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return user, nil
}
