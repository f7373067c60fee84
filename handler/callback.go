package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MichelMeloG/JurChat/pkg/logger"
	"github.com/MichelMeloG/JurChat/service"
)

type CallbackHandler struct {
	tracker *service.AnalysisTracker
}

func NewCallbackHandler(tracker *service.AnalysisTracker) *CallbackHandler {
	return &CallbackHandler{tracker: tracker}
}

type CallbackRequest struct {
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

type CallbackContent struct {
	DocumentName string `json:"document_name"`
	State        string `json:"state"`
	ErrorMsg     string `json:"error_msg"`
}

// HandleCallback receives analysis status notifications from the workflow
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	if !h.tracker.CallbacksEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analysis callbacks are disabled"})
		return
	}

	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var content CallbackContent
	if err := json.Unmarshal([]byte(req.Content), &content); err != nil || content.DocumentName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content format"})
		return
	}

	ctx := logger.WithDocument(c.Request.Context(), content.DocumentName)

	if !h.tracker.VerifyCallback(req.Checksum, req.Content, content.DocumentName) {
		logger.Warn(ctx, "callback checksum mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid checksum"})
		return
	}

	if !service.ValidAnalysisStatus(content.State) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown analysis state"})
		return
	}

	state := h.tracker.Set(content.DocumentName, content.State, content.ErrorMsg)
	logger.Info(ctx, "analysis status updated", "status", state.Status)

	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}
