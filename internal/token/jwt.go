// Package token issues and verifies the signed session credentials:
// short-lived access tokens, longer-lived refresh tokens, and the
// general-purpose session token carried in the third cookie.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token verification errors
var (
	// ErrInvalid is returned for a token with a bad signature,
	// malformed payload, or wrong type
	ErrInvalid = errors.New("invalid token")

	// ErrExpired is returned for a well-formed token past its expiry
	ErrExpired = errors.New("token expired")
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
	typeSession = "session"
)

// Claims are the assertions carried by every token this service signs.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"typ"`
}

// Manager signs and verifies HS256 tokens. Sign and verify are pure
// computations; Manager is safe for concurrent use.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager creates a token manager with the given signing secret and
// token lifetimes.
func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccessToken signs a short-lived access token for the user.
func (m *Manager) IssueAccessToken(userID string) (string, error) {
	return m.issue(userID, typeAccess, m.accessTTL)
}

// IssueRefreshToken signs a refresh token with a unique jti so two
// tokens issued in the same second never collide.
func (m *Manager) IssueRefreshToken(userID string) (string, error) {
	return m.issue(userID, typeRefresh, m.refreshTTL)
}

// IssueSessionToken signs the general-purpose session token carried
// alongside the access token.
func (m *Manager) IssueSessionToken(userID string) (string, error) {
	return m.issue(userID, typeSession, m.accessTTL)
}

func (m *Manager) issue(userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
		TokenType: tokenType,
	})

	signed, err := t.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return signed, nil
}

// VerifyAccessToken checks signature, expiry, and token type and
// returns the claims.
func (m *Manager) VerifyAccessToken(tokenString string) (*Claims, error) {
	return m.verify(tokenString, typeAccess)
}

// VerifyRefreshToken checks signature, expiry, and token type and
// returns the claims.
func (m *Manager) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return m.verify(tokenString, typeRefresh)
}

func (m *Manager) verify(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}

	// WithValidMethods pins HS256: a token using "none" or any other
	// algorithm fails before the signature is even checked.
	t, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if !t.Valid || claims.TokenType != wantType || claims.Subject == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}

// AccessTTL returns the access token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.accessTTL
}

// RefreshTTL returns the refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration {
	return m.refreshTTL
}
