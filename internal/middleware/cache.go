package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore forbids caching of responses. Question content and timers must
// never be served from a browser or proxy cache.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
