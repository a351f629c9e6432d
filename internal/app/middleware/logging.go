package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"nutriiq/pkg/logger"
)

func LoggingMiddleware(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		l.Info(c.Request.Context(), "request completed",
			logger.Field{Key: "path", Value: path},
			logger.Field{Key: "method", Value: c.Request.Method},
			logger.Field{Key: "status", Value: c.Writer.Status()},
			logger.Field{Key: "latency", Value: time.Since(start)},
		)
	}
}
