package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mememonize/backend/internal/logger"
)

type RequestLogMiddleware struct {
	log *logger.Logger
}

func NewRequestLogMiddleware(baseLog *logger.Logger) *RequestLogMiddleware {
	return &RequestLogMiddleware{log: baseLog.With("component", "http")}
}

func (m *RequestLogMiddleware) Log() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		if status >= 500 {
			m.log.Error("Request failed", fields...)
			return
		}
		m.log.Info("Request completed", fields...)
	}
}
