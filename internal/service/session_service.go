package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avolkhin/storefront-auth/internal/domain"
	"github.com/avolkhin/storefront-auth/internal/dto"
	"github.com/avolkhin/storefront-auth/internal/federation"
	"github.com/avolkhin/storefront-auth/internal/repository"
	"github.com/avolkhin/storefront-auth/internal/token"
	"github.com/avolkhin/storefront-auth/internal/utils"
)

// sessionService implements SessionService
type sessionService struct {
	userRepo     repository.UserRepository
	tokens       *token.Manager
	verifier     federation.Verifier
	store        ObjectStore
	cookiePolicy CookiePolicy
	bcryptCost   int
}

// NewSessionService creates a new session service
func NewSessionService(
	userRepo repository.UserRepository,
	tokens *token.Manager,
	verifier federation.Verifier,
	store ObjectStore,
	cookiePolicy CookiePolicy,
	bcryptCost int,
) SessionService {
	return &sessionService{
		userRepo:     userRepo,
		tokens:       tokens,
		verifier:     verifier,
		store:        store,
		cookiePolicy: cookiePolicy,
		bcryptCost:   bcryptCost,
	}
}

// Register creates a local account and returns the sanitized profile.
func (s *sessionService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	email := utils.SanitizeEmail(req.Email)
	username := strings.ToLower(strings.TrimSpace(req.Username))

	_, err := s.userRepo.FindByEmailOrUsername(ctx, email, username)
	if err == nil {
		return nil, fmt.Errorf("user with this email or username exists: %w", domain.ErrConflict)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  req.Username,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Concurrent duplicate registration loses at the unique index.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("user with this email or username exists: %w", domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return toUserResponse(user), nil
}

// Login authenticates local credentials and opens a session.
func (s *sessionService) Login(ctx context.Context, req *dto.LoginRequest) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user does not exist: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// A federation-only account has no local password; no candidate
	// matches it.
	if user.IsFederated() || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, domain.ErrAuthentication
	}

	return s.openSession(ctx, user)
}

// LoginWithGoogle verifies the identity assertion and opens a session
// for the resolved local user, creating one on first federated login.
func (s *sessionService) LoginWithGoogle(ctx context.Context, req *dto.GoogleLoginRequest) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if s.verifier == nil {
		return nil, fmt.Errorf("%w: federated login is not configured", domain.ErrFederation)
	}

	claims, err := s.verifier.Verify(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	user, err := s.resolveOrCreateUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	return s.openSession(ctx, user)
}

// resolveOrCreateUser maps verified identity claims to a local user.
// Repeat federated logins only check presence; existing password and
// profile fields are never overwritten.
func (s *sessionService) resolveOrCreateUser(ctx context.Context, claims *federation.IdentityClaims) (*domain.User, error) {
	email := utils.SanitizeEmail(claims.Email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up federated user: %w", err)
	}

	user = &domain.User{
		Username:    usernameFromEmail(email),
		Email:       email,
		DisplayName: claims.Name,
		AvatarURL:   claims.Picture,
	}

	err = s.userRepo.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		// Either a concurrent first login for the same identity won the
		// race, or the derived username is taken.
		if existing, getErr := s.userRepo.GetByEmail(ctx, email); getErr == nil {
			return existing, nil
		}
		user.ID = ""
		user.Username = fmt.Sprintf("%s-%s", user.Username, uuid.New().String()[:8])
		err = s.userRepo.Create(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create federated user: %w", err)
	}

	return user, nil
}

// Refresh rotates the token pair. The presented refresh token must
// match the single stored hash for the user.
func (s *sessionService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	presented := hashToken(refreshToken)
	if user.RefreshTokenHash == "" ||
		subtle.ConstantTimeCompare([]byte(presented), []byte(user.RefreshTokenHash)) != 1 {
		return nil, domain.ErrUnauthenticated
	}

	return s.openSession(ctx, user)
}

// Logout clears the stored refresh-token hash, invalidating the
// refresh token immediately. Outstanding access tokens remain valid
// until their own expiry.
func (s *sessionService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.SetRefreshTokenHash(ctx, userID, ""); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}

// ChangePassword verifies the old password and stores a new hash. The
// stored refresh token is cleared with it; access tokens already
// issued stay valid until expiry.
func (s *sessionService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.IsFederated() || !utils.CheckPasswordHash(req.OldPassword, user.PasswordHash) {
		return fmt.Errorf("invalid old password: %w", domain.ErrAuthentication)
	}

	newHash, err := utils.HashPassword(req.NewPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.SetPassword(ctx, userID, newHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to set password: %w", err)
	}

	return nil
}

// CurrentUser returns the sanitized profile of the acting user.
func (s *sessionService) CurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	return s.GetUser(ctx, userID)
}

// GetUser returns a sanitized profile by id.
func (s *sessionService) GetUser(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toUserResponse(user), nil
}

// ListUsers returns sanitized profiles for all users.
func (s *sessionService) ListUsers(ctx context.Context) ([]*dto.UserResponse, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	responses := make([]*dto.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, toUserResponse(user))
	}
	return responses, nil
}

// UpdateAvatar stores the image and persists the returned URL.
func (s *sessionService) UpdateAvatar(ctx context.Context, userID string, image io.Reader, contentType string) (*dto.UserResponse, error) {
	if s.store == nil {
		return nil, fmt.Errorf("avatar storage is not configured: %w", domain.ErrInternal)
	}

	url, err := s.store.Upload(ctx, "avatars/"+userID, image, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	if err := s.userRepo.SetAvatarURL(ctx, userID, url); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to set avatar url: %w", err)
	}

	return s.GetUser(ctx, userID)
}

// Authenticate verifies an access token for the middleware.
func (s *sessionService) Authenticate(tokenString string) (string, error) {
	claims, err := s.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	return claims.Subject, nil
}

func (s *sessionService) CookiePolicy() CookiePolicy {
	return s.cookiePolicy
}

// openSession issues the access/refresh/session token triple and
// persists the refresh-token hash. One atomic update per user: a
// concurrent login silently invalidates the earlier session.
func (s *sessionService) openSession(ctx context.Context, user *domain.User) (*Session, error) {
	accessToken, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	sessionToken, err := s.tokens.IssueSessionToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	if err := s.userRepo.SetRefreshTokenHash(ctx, user.ID, hashToken(refreshToken)); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return &Session{
		User: toUserResponse(user),
		Cookies: s.cookiePolicy.cookieSet(
			accessToken, refreshToken, sessionToken,
			s.tokens.AccessTTL(), s.tokens.RefreshTTL(),
		),
	}, nil
}

// hashToken hashes a token using SHA-256; only the hash is persisted.
func hashToken(t string) string {
	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:])
}

func usernameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	local = strings.ToLower(local)

	// Registration enforces a 3-character minimum on usernames; a
	// short local part gets the same suffix treatment as a collision.
	if len(local) < 3 {
		local = fmt.Sprintf("%s-%s", local, uuid.New().String()[:8])
	}

	return local
}

func toUserResponse(user *domain.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   user.UpdatedAt.Format(time.RFC3339),
	}
}
