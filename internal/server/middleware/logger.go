package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adverant/nexus/pdf-extractor/internal/logging"
)

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	logger := logging.NewLogger("HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"bytes", c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request", kv...)
		case c.Writer.Status() >= 400:
			logger.Warn("request", kv...)
		default:
			logger.Info("request", kv...)
		}
	}
}
