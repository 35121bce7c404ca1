package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type EmotionResponse struct {
	Emotion string `json:"emotion"`
	Message string `json:"message"`
}

// AnalyzeEmotion POST /api/analyzeEmotion. The classification is a fixed mock;
// the request body is ignored.
func AnalyzeEmotion(c *gin.Context) {
	c.JSON(http.StatusOK, EmotionResponse{
		Emotion: "Happy",
		Message: "It seems like you are feeling happy. Keep up the good mood!",
	})
}
