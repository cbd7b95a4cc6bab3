package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/NoManNayeem/AgenTick/internal/domain"
)

// createConversationRequest is the body for POST /conversations.
type createConversationRequest struct {
	Title string `json:"title"`
	Topic string `json:"topic,omitempty"`
}

// updateConversationRequest is the body for PATCH /conversations/:id.
// Nil fields are left unchanged.
type updateConversationRequest struct {
	Title *string `json:"title,omitempty"`
	Topic *string `json:"topic,omitempty"`
}

// CreateConversation creates a conversation for the authenticated user.
// POST /conversations
func (h *Handler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.ErrValidation)
	}

	conv, err := h.service.CreateConversation(c.Request().Context(), currentUser(c).UserID, req.Title, req.Topic)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, conv)
}

// ListConversations lists the user's conversations ordered by updated_at
// descending.
// GET /conversations
func (h *Handler) ListConversations(c echo.Context) error {
	convs, err := h.service.ListConversations(c.Request().Context(), currentUser(c).UserID)
	if err != nil {
		return writeError(c, err)
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return c.JSON(http.StatusOK, convs)
}

// GetConversation retrieves one conversation.
// GET /conversations/:conversation_id
func (h *Handler) GetConversation(c echo.Context) error {
	conv, err := h.service.GetConversation(c.Request().Context(), currentUser(c).UserID, c.Param("conversation_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// UpdateConversation updates title and/or topic.
// PATCH /conversations/:conversation_id
func (h *Handler) UpdateConversation(c echo.Context) error {
	var req updateConversationRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.ErrValidation)
	}

	conv, err := h.service.UpdateConversation(c.Request().Context(), currentUser(c).UserID, c.Param("conversation_id"), req.Title, req.Topic)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// DeleteConversation deletes a conversation and its messages.
// DELETE /conversations/:conversation_id
func (h *Handler) DeleteConversation(c echo.Context) error {
	if err := h.service.DeleteConversation(c.Request().Context(), currentUser(c).UserID, c.Param("conversation_id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
