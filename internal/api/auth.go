package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/synapsefi/bridge-hub/internal/hub"
)

// ──────────────────────────────────────────────────────────────────
// X-API-Key Authentication Middleware
//
// Reads the hub's configured API key (HUB_API_KEY, hot-swappable via
// PUT /api/v1/config) and requires every protected request to carry a
// matching X-API-Key header. The comparison never leaks which check
// failed — spec's AuthError is a single uniform response.
// ──────────────────────────────────────────────────────────────────

// AuthMiddleware returns a Gin middleware that validates the X-API-Key
// header against the hub's live configuration on every request, so a
// runtime config update takes effect without restarting the process.
func AuthMiddleware(h *hub.Hub) gin.HandlerFunc {
	if h.Config().APIKey == "" && os.Getenv("GIN_MODE") == "release" {
		log.Println("[Auth] WARNING: HUB_API_KEY is not set in release mode. " +
			"All protected endpoints are publicly accessible.")
	}

	return func(c *gin.Context) {
		key := h.Config().APIKey
		if key == "" {
			c.Next()
			return
		}

		presented := c.GetHeader("X-API-Key")
		if presented == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "auth_error",
				"message": "Missing or invalid API key",
			})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "auth_error",
				"message": "Missing or invalid API key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
