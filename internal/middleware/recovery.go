package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns handler panics into a JSON 500 and logs the panic value.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.String("request_id", RequestIDFromContext(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		AbortWithError(c, http.StatusInternalServerError, "internal_error", "An internal server error occurred")
	})
}
