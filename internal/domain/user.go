package domain

import "time"

// User represents a storefront account. PasswordHash is empty for
// accounts created through federated login; RefreshTokenHash holds the
// SHA-256 hash of the single currently valid refresh token, or "" when
// the user has no active session.
type User struct {
	ID               string    `json:"id" db:"id"`
	Username         string    `json:"username" db:"username"`
	Email            string    `json:"email" db:"email"`
	PasswordHash     string    `json:"-" db:"password_hash"`
	DisplayName      string    `json:"display_name" db:"display_name"`
	AvatarURL        string    `json:"avatar_url" db:"avatar_url"`
	RefreshTokenHash string    `json:"-" db:"refresh_token_hash"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// IsFederated reports whether the account was created through an
// external identity provider and has no local password.
func (u *User) IsFederated() bool {
	return u.PasswordHash == ""
}
