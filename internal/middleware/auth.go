package middleware

import (
	"crypto/subtle"
	"net/http"

	"payment-webhook-api/internal/config"

	"github.com/gin-gonic/gin"
)

// WebhookKeyMiddleware optionally guards the webhook route with a shared
// key. When WEBHOOK_API_KEY is unset the route stays open, matching the
// partner contract; when set, callers must present it in X-Webhook-Key.
func WebhookKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := ""
		if config.AppConfig != nil {
			expected = config.AppConfig.WebhookAPIKey
		}
		if expected == "" {
			c.Next()
			return
		}

		key := c.GetHeader("X-Webhook-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
