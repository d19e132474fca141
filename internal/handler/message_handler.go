package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skolegrid/aula-bridge/internal/model"
	"github.com/skolegrid/aula-bridge/internal/response"
	"github.com/skolegrid/aula-bridge/internal/service"
)

// MessageHandler exposes the unread message view.
type MessageHandler struct {
	data *service.DataService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(data *service.DataService) *MessageHandler {
	return &MessageHandler{data: data}
}

type unreadPayload struct {
	Count    int             `json:"count"`
	Messages []model.Message `json:"messages"`
}

// GetUnread godoc
// GET /api/v1/messages/unread
// Returns the unread count and the unread messages, most recent first.
// MitID-gated threads appear as placeholders with requires_mitid set.
func (h *MessageHandler) GetUnread(c *gin.Context) {
	count, messages, err := h.data.UnreadMessages(c.Request.Context())
	if err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}
	response.SuccessWithWarnings(c, http.StatusOK, unreadPayload{Count: count, Messages: messages}, h.data.Warnings())
}
