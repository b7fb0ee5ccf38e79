package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// NoStore marks responses under the given path prefixes as uncacheable unless
// the handler sets its own Cache-Control.
func NoStore(prefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range prefixes {
			if strings.HasPrefix(path, prefix) {
				c.Header("Cache-Control", "no-store")
				break
			}
		}
		c.Next()
	}
}
