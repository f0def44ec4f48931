// Package federation validates third-party identity assertions and
// maps them to local identity claims. Assertions are untrusted input:
// signature, algorithm, issuer, and audience are all checked against
// an explicit allow-list before any claim is believed.
package federation

import (
	"context"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/avolkhin/storefront-auth/internal/domain"
)

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// googleIssuers are the only issuers accepted for Google ID tokens.
var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// IdentityClaims are the verified assertions extracted from a
// provider token.
type IdentityClaims struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Verifier validates a provider identity assertion and returns the
// claims it asserts, or fails closed.
type Verifier interface {
	Verify(ctx context.Context, assertion string) (*IdentityClaims, error)
}

type googleTokenClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleVerifier validates Google-issued ID tokens against Google's
// published JWKS.
type GoogleVerifier struct {
	audience string
	issuers  []string
	keyfunc  jwt.Keyfunc
	methods  []string
}

var _ Verifier = (*GoogleVerifier)(nil)

// NewGoogleVerifier fetches Google's signing keys and returns a
// verifier bound to the given OAuth client ID. The key set refreshes
// in the background until ctx is cancelled.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("google client id is required")
	}

	jwks, err := keyfunc.Get(googleJWKSURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google jwks: %w", err)
	}

	return newVerifier(jwks.Keyfunc, clientID, googleIssuers, []string{jwt.SigningMethodRS256.Alg()}), nil
}

func newVerifier(kf jwt.Keyfunc, audience string, issuers, methods []string) *GoogleVerifier {
	return &GoogleVerifier{
		audience: audience,
		issuers:  issuers,
		keyfunc:  kf,
		methods:  methods,
	}
}

// Verify validates the assertion and extracts identity claims. Any
// failure, including an unknown issuer or audience, yields
// domain.ErrFederation.
func (v *GoogleVerifier) Verify(ctx context.Context, assertion string) (*IdentityClaims, error) {
	claims := &googleTokenClaims{}

	t, err := jwt.ParseWithClaims(assertion, claims, v.keyfunc,
		jwt.WithValidMethods(v.methods),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFederation, err)
	}
	if !t.Valid {
		return nil, domain.ErrFederation
	}

	if !v.issuerAllowed(claims.Issuer) {
		return nil, fmt.Errorf("%w: issuer %q not allowed", domain.ErrFederation, claims.Issuer)
	}

	if claims.Email == "" {
		return nil, fmt.Errorf("%w: assertion carries no email", domain.ErrFederation)
	}

	return &IdentityClaims{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

func (v *GoogleVerifier) issuerAllowed(issuer string) bool {
	for _, allowed := range v.issuers {
		if issuer == allowed {
			return true
		}
	}
	return false
}
