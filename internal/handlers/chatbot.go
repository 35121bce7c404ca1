package handlers

import (
	"errors"
	"net/http"

	"github.com/LingByte/LingIVR/pkg/ivr"
	"github.com/LingByte/LingIVR/pkg/llm"
	"github.com/LingByte/LingIVR/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgMessageRequired = "Message content is required."
	msgChatbotFailed   = "Failed to get response from the chatbot backend."
)

type ChatbotRequest struct {
	Message string `json:"message" binding:"required"`
}

type ChatbotResponse struct {
	Message string `json:"message"`
}

// ChatbotHandler exposes the relay to API clients
type ChatbotHandler struct {
	relay ivr.Responder
}

func NewChatbotHandler(relay ivr.Responder) *ChatbotHandler {
	return &ChatbotHandler{relay: relay}
}

// Handle POST /api/chatbot
func (h *ChatbotHandler) Handle(c *gin.Context) {
	var req ChatbotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, msgMessageRequired)
		return
	}

	reply, err := h.relay.Reply(c.Request.Context(), req.Message)
	if errors.Is(err, llm.ErrMessageRequired) {
		abortWithError(c, http.StatusBadRequest, msgMessageRequired)
		return
	}
	if err != nil {
		fields := []zap.Field{zap.String("requestId", c.GetString(requestIDKey)), zap.Error(err)}
		if kind, ok := llm.IsUpstream(err); ok {
			fields = append(fields, zap.String("kind", string(kind)))
		}
		logger.Error("Chatbot relay failed", fields...)
		abortWithError(c, http.StatusInternalServerError, msgChatbotFailed)
		return
	}

	c.JSON(http.StatusOK, ChatbotResponse{Message: reply})
}
