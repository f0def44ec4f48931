package dto

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/avolkhin/storefront-auth/internal/domain"
)

// passwordLength bounds passwords in bytes: at least 8, and at most
// the 72 bytes bcrypt accepts as input. validation.Length measures
// byte length, so a long multibyte password is rejected here instead
// of failing inside the hasher.
var passwordLength = validation.Length(8, 72).Error("the length must be between 8 and 72 bytes")

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r RegisterRequest) Validate() error {
	return wrapViolations(validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 60)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, passwordLength),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.In(r.Password).Error("must match password")),
	))
}

// LoginRequest represents a local login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return wrapViolations(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	))
}

// GoogleLoginRequest carries the identity assertion issued by Google.
type GoogleLoginRequest struct {
	Token string `json:"token"`
}

func (r GoogleLoginRequest) Validate() error {
	return wrapViolations(validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	))
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	return wrapViolations(validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, passwordLength),
	))
}

// wrapViolations converts ozzo field errors into the domain validation
// error so the handler layer can map the whole class uniformly.
func wrapViolations(err error) error {
	if err == nil {
		return nil
	}

	violations, ok := err.(validation.Errors)
	if !ok {
		return &domain.ValidationError{Fields: map[string]string{"_": err.Error()}}
	}

	fields := make(map[string]string, len(violations))
	for name, fieldErr := range violations {
		fields[name] = fieldErr.Error()
	}

	return &domain.ValidationError{Fields: fields}
}

// UserResponse is the sanitized user representation. It never carries
// the password hash or refresh token.
type UserResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
