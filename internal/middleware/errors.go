package middleware

import "github.com/gin-gonic/gin"

// AbortWithError writes the JSON error envelope shared by every endpoint and stops the chain.
func AbortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      code,
		"message":    message,
		"request_id": RequestIDFromContext(c),
	})
}
