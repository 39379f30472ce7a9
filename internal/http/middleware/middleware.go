// Package middleware holds router-level gin middleware that has no home in
// platform/httpkit.
package middleware

import (
	"time"

	"production_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RequestTimer warns about requests slower than threshold. Websocket
// upgrades are skipped since they live for the whole session.
func RequestTimer(log *logger.Logger, threshold time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.IsWebsocket() {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		if elapsed := time.Since(start); elapsed > threshold {
			log.Warn("slow request",
				"method", c.Request.Method,
				"route", c.FullPath(),
				"status", c.Writer.Status(),
				"elapsed", elapsed.String(),
			)
		}
	}
}
