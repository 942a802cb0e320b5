package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/animeshelf/internal/logging"
)

// RequestLogger logs one line per request through zerolog.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		evt := logging.Debug()
		if status >= 500 {
			evt = logging.Error()
		} else if status >= 400 {
			evt = logging.Warn()
		}
		evt.Str("component", "api").
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}
