package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nordhen/credgate/internal/pkg/ctxkey"
	"github.com/nordhen/credgate/internal/pkg/logger"
)

// RequestID assigns every request a unique id and binds a request-scoped
// logger carrying it into the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request == nil {
			c.Next()
			return
		}

		if v := c.Request.Context().Value(ctxkey.RequestID); v != nil {
			c.Next()
			return
		}

		id := uuid.New().String()
		ctx := context.WithValue(c.Request.Context(), ctxkey.RequestID, id)
		requestLogger := logger.FromContext(ctx).With(zap.String("request_id", id))
		ctx = logger.IntoContext(ctx, requestLogger)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}
