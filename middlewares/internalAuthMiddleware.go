package middlewares

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gmLucario/pet-info-sub000/config"
)

// InternalAuthMiddleware guards the service-to-service callback endpoints the
// external scheduler calls. The shared secret travels in X-Internal-Secret.
func InternalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := config.InternalAPISecret()
		presented := c.Request.Header.Get("X-Internal-Secret")

		if secret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
