package service

import (
	"context"
	"io"

	"github.com/avolkhin/storefront-auth/internal/dto"
)

// Session is the outcome of a successful authentication: the sanitized
// profile and the cookie instructions for the client.
type Session struct {
	User    *dto.UserResponse
	Cookies SessionCookieSet
}

// SessionService orchestrates the credential and token lifecycle. It
// is the sole caller of the user repository, the token manager, and
// the federation verifier.
type SessionService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*Session, error)
	LoginWithGoogle(ctx context.Context, req *dto.GoogleLoginRequest) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error

	CurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error)
	GetUser(ctx context.Context, id string) (*dto.UserResponse, error)
	ListUsers(ctx context.Context) ([]*dto.UserResponse, error)
	UpdateAvatar(ctx context.Context, userID string, image io.Reader, contentType string) (*dto.UserResponse, error)

	// Authenticate verifies an access token and returns the acting
	// user id; used by the auth middleware.
	Authenticate(token string) (string, error)

	// CookiePolicy exposes the policy so handlers clear cookies with
	// the same attributes they were set with.
	CookiePolicy() CookiePolicy
}

// ObjectStore persists binary profile images and returns a stable URL.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}
