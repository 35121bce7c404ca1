package handlers

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON body of every API failure
type ErrorResponse struct {
	Error string `json:"error"`
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}
