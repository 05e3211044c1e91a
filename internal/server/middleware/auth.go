package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nordhen/credgate/internal/config"
	pkgerrors "github.com/nordhen/credgate/internal/pkg/errors"
)

// APIKeyAuth guards the gateway and debug surfaces with the single static
// key from configuration. An empty configured key disables the check; this
// is the expected mode behind a trusted network boundary.
func APIKeyAuth(cfg *config.Config) gin.HandlerFunc {
	apiKey := cfg.Gateway.APIKey
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		presented := extractBearerKey(c)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
			coded := pkgerrors.Unauthorized("authentication_error", "Invalid or missing API key")
			c.AbortWithStatusJSON(coded.HTTPStatus, gin.H{
				"error": gin.H{
					"type":    coded.Code,
					"message": coded.Message,
				},
			})
			return
		}
		c.Next()
	}
}

func extractBearerKey(c *gin.Context) string {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(c.GetHeader("X-Api-Key"))
}
