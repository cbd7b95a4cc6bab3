// Package v1 provides the HTTP handlers for the backend API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/NoManNayeem/AgenTick/internal/domain"
	"github.com/NoManNayeem/AgenTick/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/register", h.Register)
	e.POST("/login", h.Login)

	authed := e.Group("", h.RequireUser)
	authed.POST("/conversations", h.CreateConversation)
	authed.GET("/conversations", h.ListConversations)
	authed.GET("/conversations/:conversation_id", h.GetConversation)
	authed.PATCH("/conversations/:conversation_id", h.UpdateConversation)
	authed.DELETE("/conversations/:conversation_id", h.DeleteConversation)
	authed.GET("/conversations/:conversation_id/messages", h.GetConversationMessages)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// writeError maps service errors to HTTP responses. Infrastructure fault
// detail never reaches the client.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.Response().Header().Set("WWW-Authenticate", "Bearer")
		return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Invalid authentication credentials"})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		return c.JSON(http.StatusConflict, map[string]string{"detail": "Already exists"})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "Internal server error"})
	}
}
