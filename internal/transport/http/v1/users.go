package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/NoManNayeem/AgenTick/internal/domain"
)

// credentialsRequest is the body for /register and /login.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// tokenResponse carries an issued access token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register creates a new user and returns an access token.
// POST /register
func (h *Handler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.ErrValidation)
	}

	token, err := h.service.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Login validates credentials and returns an access token.
// POST /login
func (h *Handler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.ErrValidation)
	}

	token, err := h.service.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}
