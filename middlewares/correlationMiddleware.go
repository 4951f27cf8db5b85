package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/gmLucario/pet-info-sub000/utils"
	"github.com/google/uuid"
)

// CorrelationMiddleware tags every request with a correlation id so log lines
// of one webhook batch or API call can be stitched together. An id presented
// by the caller wins; otherwise a fresh one is minted.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.Request.Header.Get("X-Correlation-Id")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), correlationID))
		c.Writer.Header().Set("X-Correlation-Id", correlationID)
		c.Next()
	}
}
