package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avolkhin/storefront-auth/internal/domain"
	"github.com/avolkhin/storefront-auth/internal/dto"
)

// respondError maps domain errors to HTTP statuses. Anything outside
// the taxonomy is logged and surfaced as a generic internal failure so
// storage or signing details never leak to the client.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: validationErr.Error(),
			Details: validationErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: "Conflict", Message: "User with this email or username already exists"})
	case errors.Is(err, domain.ErrAuthentication):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized", Message: "Invalid credentials"})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized", Message: "Authentication required"})
	case errors.Is(err, domain.ErrFederation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Bad request", Message: "Identity verification failed"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Not found", Message: "User does not exist"})
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error", Message: "Something went wrong"})
	}
}
