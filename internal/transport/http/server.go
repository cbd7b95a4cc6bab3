// Package http provides the HTTP server for the backend.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/NoManNayeem/AgenTick/internal/service"
	v1 "github.com/NoManNayeem/AgenTick/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server: auth endpoints,
// conversation CRUD, and message history.
func NewServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler := v1.NewHandler(svc)
	handler.RegisterRoutes(e)

	return e
}
