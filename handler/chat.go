package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MichelMeloG/JurChat/middleware"
	"github.com/MichelMeloG/JurChat/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ListMessages returns the transcript of the current user's chat about a document
func (h *ChatHandler) ListMessages(c *gin.Context) {
	messages := h.chat.Messages(middleware.GetUsername(c), c.Param("name"))
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage asks the backend a question about a document
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	turn, err := h.chat.Ask(c.Request.Context(), middleware.GetUsername(c), c.Param("name"), req.Message)
	switch {
	case errors.Is(err, service.ErrEmptyQuestion):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    service.ChatErrorMessage,
			"question": turn.Question,
			"reply":    turn.Reply,
		})
	default:
		c.JSON(http.StatusOK, turn)
	}
}

// ClearMessages drops the transcript of a document chat
func (h *ChatHandler) ClearMessages(c *gin.Context) {
	h.chat.Clear(middleware.GetUsername(c), c.Param("name"))
	c.Status(http.StatusNoContent)
}

// ListConversations returns every chat the current user has open
func (h *ChatHandler) ListConversations(c *gin.Context) {
	conversations := h.chat.Conversations(middleware.GetUsername(c))
	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"total":         len(conversations),
	})
}
