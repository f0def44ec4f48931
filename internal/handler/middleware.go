package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avolkhin/storefront-auth/internal/dto"
	"github.com/avolkhin/storefront-auth/internal/service"
)

const ctxUserIDKey = "user_id"

// AuthMiddleware extracts the access token from the session cookie,
// falling back to a bearer Authorization header, verifies it, and
// attaches the acting user id to the request context. Every failure
// rejects with 401 before business logic runs; there is no silent
// refresh and no anonymous fallthrough.
func AuthMiddleware(sessions service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := extractAccessToken(c)
		if accessToken == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Access token is required",
			})
			c.Abort()
			return
		}

		userID, err := sessions.Authenticate(accessToken)
		if err != nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(ctxUserIDKey, userID)
		c.Next()
	}
}

// ActingUserID returns the user id attached by AuthMiddleware.
func ActingUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ctxUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}

func extractAccessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(service.CookieAccessToken); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
