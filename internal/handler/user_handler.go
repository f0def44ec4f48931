package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avolkhin/storefront-auth/internal/service"
)

// UserHandler serves public, sanitized user profiles
type UserHandler struct {
	sessions service.SessionService
	logger   *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(sessions service.SessionService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// List returns all users, sanitized
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.sessions.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// Get returns one user by id, sanitized
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.sessions.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
