package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health GET /health
func Health(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": provider})
	}
}
