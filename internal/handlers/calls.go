package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/LingByte/LingIVR/internal/models"
	"github.com/LingByte/LingIVR/pkg/ivr"
	"github.com/LingByte/LingIVR/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgToNumberRequired = `The "toNumber" field is required.`
	msgCallFailed       = "Failed to initiate call"
)

// Initiator places outbound calls
type Initiator interface {
	Initiate(ctx context.Context, toNumber string) (string, error)
}

// CallLookup reads stored call records
type CallLookup interface {
	GetCall(ctx context.Context, callID string) (*models.CallRecord, error)
}

type MakeCallRequest struct {
	ToNumber string `json:"toNumber" binding:"required"`
}

type MakeCallResponse struct {
	Message string `json:"message"`
	CallID  string `json:"callId"`
	CallSid string `json:"callSid"`
}

type CallHandler struct {
	initiator Initiator
	calls     CallLookup
}

// NewCallHandler creates the call API. calls may be nil when persistence is disabled.
func NewCallHandler(initiator Initiator, calls CallLookup) *CallHandler {
	return &CallHandler{initiator: initiator, calls: calls}
}

// MakeCall POST /api/makeCall
func (h *CallHandler) MakeCall(c *gin.Context) {
	var req MakeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, msgToNumberRequired)
		return
	}

	callID, err := h.initiator.Initiate(c.Request.Context(), req.ToNumber)
	if errors.Is(err, ivr.ErrDestinationRequired) {
		abortWithError(c, http.StatusBadRequest, msgToNumberRequired)
		return
	}
	if err != nil {
		logger.Error("makeCall failed",
			zap.String("requestId", c.GetString(requestIDKey)),
			zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, msgCallFailed)
		return
	}

	c.JSON(http.StatusOK, MakeCallResponse{
		Message: "Call initiated",
		CallID:  callID,
		CallSid: callID,
	})
}

// GetCall GET /api/calls/:callId
func (h *CallHandler) GetCall(c *gin.Context) {
	if h.calls == nil {
		abortWithError(c, http.StatusServiceUnavailable, "Call records are disabled.")
		return
	}

	record, err := h.calls.GetCall(c.Request.Context(), c.Param("callId"))
	if errors.Is(err, models.ErrCallNotFound) {
		abortWithError(c, http.StatusNotFound, "Call not found.")
		return
	}
	if err != nil {
		logger.Error("Failed to load call record",
			zap.String("callId", c.Param("callId")),
			zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to load call record.")
		return
	}
	c.JSON(http.StatusOK, record)
}
