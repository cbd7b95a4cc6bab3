package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/NoManNayeem/AgenTick/internal/domain"
)

const userContextKey = "current_user"

// RequireUser resolves the bearer token to a user record and stores it on
// the request context.
func (h *Handler) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.Response().Header().Set("WWW-Authenticate", "Bearer")
			return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Invalid authentication credentials"})
		}

		user, err := h.service.UserByToken(c.Request().Context(), token)
		if err != nil {
			return writeError(c, err)
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// currentUser returns the user attached by RequireUser.
func currentUser(c echo.Context) *domain.User {
	user, _ := c.Get(userContextKey).(*domain.User)
	return user
}
