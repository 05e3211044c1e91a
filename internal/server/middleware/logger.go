package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nordhen/credgate/internal/pkg/ctxkey"
	"github.com/nordhen/credgate/internal/pkg/logger"
)

// Logger is the access log middleware.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path

		c.Next()

		// High-frequency probe paths stay out of the access log.
		if path == "/health" {
			return
		}

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		fields := []zap.Field{
			zap.String("component", "http.access"),
			zap.Int("status_code", statusCode),
			zap.Int64("latency_ms", latency.Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		}
		if method, ok := c.Request.Context().Value(ctxkey.Method).(string); ok && method != "" {
			fields = append(fields, zap.String("upstream_method", method))
		}

		l := logger.FromContext(c.Request.Context()).With(fields...)
		l.Info("http request completed")

		if len(c.Errors) > 0 {
			l.Warn("http request contains gin errors", zap.String("errors", c.Errors.String()))
		}
	}
}
