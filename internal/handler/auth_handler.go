package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avolkhin/storefront-auth/internal/domain"
	"github.com/avolkhin/storefront-auth/internal/dto"
	"github.com/avolkhin/storefront-auth/internal/service"
)

const maxAvatarSize = 5 << 20 // 5 MiB

// AuthHandler handles the authentication surface
type AuthHandler struct {
	sessions service.SessionService
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions service.SessionService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "Malformed request body",
		})
		return
	}

	user, err := h.sessions.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login handles local login and emits the session cookies
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "Malformed request body",
		})
		return
	}

	session, err := h.sessions.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setSessionCookies(c, session.Cookies)
	c.JSON(http.StatusOK, session.User)
}

// GoogleLogin handles federated login through a Google identity
// assertion; issuance then follows the local login path exactly.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req dto.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "Malformed request body",
		})
		return
	}

	session, err := h.sessions.LoginWithGoogle(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setSessionCookies(c, session.Cookies)
	c.JSON(http.StatusOK, session.User)
}

// Refresh rotates the token pair using the refresh cookie
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(service.CookieRefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Refresh token not found in cookie",
		})
		return
	}

	session, err := h.sessions.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setSessionCookies(c, session.Cookies)
	c.JSON(http.StatusOK, session.User)
}

// Logout clears the stored refresh token and the session cookies
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := ActingUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Authentication required",
		})
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), userID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setSessionCookies(c, h.sessions.CookiePolicy().ClearSet())
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Logged out successfully"})
}

// GetMe returns the acting user's sanitized profile
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := ActingUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Authentication required",
		})
		return
	}

	user, err := h.sessions.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ChangePassword verifies the old password and stores a new one
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := ActingUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Authentication required",
		})
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "Malformed request body",
		})
		return
	}

	if err := h.sessions.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		// A wrong old password is a user-correctable input error here,
		// not a session failure.
		if errors.Is(err, domain.ErrAuthentication) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Bad request",
				Message: "Invalid old password",
			})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password changed successfully"})
}

// UploadAvatar stores a profile image and returns the updated profile
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	userID, ok := ActingUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Authentication required",
		})
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "Form field 'avatar' is required",
		})
		return
	}
	if fileHeader.Size > maxAvatarSize {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "Avatar exceeds the maximum allowed size",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer file.Close()

	user, err := h.sessions.UpdateAvatar(c.Request.Context(), userID, file, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// setSessionCookies applies one cookie policy to every Set-Cookie the
// auth surface emits, for setting and clearing alike.
func (h *AuthHandler) setSessionCookies(c *gin.Context, cookies service.SessionCookieSet) {
	policy := h.sessions.CookiePolicy()
	c.SetSameSite(policy.SameSite)
	for _, cookie := range cookies {
		c.SetCookie(cookie.Name, cookie.Value, cookie.MaxAge, policy.Path, "", policy.Secure, policy.HTTPOnly)
	}
}
