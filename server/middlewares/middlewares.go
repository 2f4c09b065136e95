package middlewares

import (
	"time"

	Logger "github.com/Luismorlan/postsync/utils/log"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs every request through the service logger instead of
// gin's stdout logger, so requests end up next to the rest of the service
// logs (and in Datadog in production).
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// before request
		c.Next()

		entry := Logger.Log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
			return
		}
		entry.Debug("request served")
	}
}
