package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/NoManNayeem/AgenTick/internal/domain"
)

// GetConversationMessages retrieves paginated chat history.
// GET /conversations/:conversation_id/messages?skip&limit
func (h *Handler) GetConversationMessages(c echo.Context) error {
	skip := 0
	if v := c.QueryParam("skip"); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			skip = val
		}
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			limit = val
		}
	}

	ctx := c.Request().Context()
	conv, messages, hasMore, err := h.service.ConversationMessages(ctx, currentUser(c).UserID, c.Param("conversation_id"), skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversation": conv,
		"messages":     messages,
		"has_more":     hasMore,
	})
}
