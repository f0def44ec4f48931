package repository

import (
	"context"

	"github.com/avolkhin/storefront-auth/internal/domain"
)

// UserRepository defines methods for user persistence. Uniqueness of
// username and email is enforced by the storage layer: concurrent
// duplicate inserts race at the unique index and the loser gets
// ErrDuplicate.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)

	// SetRefreshTokenHash overwrites the stored refresh-token hash in a
	// single atomic statement; pass "" to clear it.
	SetRefreshTokenHash(ctx context.Context, userID, tokenHash string) error

	// SetPassword stores a new password hash and clears the refresh
	// token hash, ending the active session.
	SetPassword(ctx context.Context, userID, passwordHash string) error

	SetAvatarURL(ctx context.Context, userID, avatarURL string) error
}
