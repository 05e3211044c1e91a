package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"github.com/nordhen/credgate/internal/config"
)

// APIKeyAuthMiddleware is a distinct type so Wire can inject the configured
// auth middleware.
type APIKeyAuthMiddleware gin.HandlerFunc

func ProvideAPIKeyAuth(cfg *config.Config) APIKeyAuthMiddleware {
	return APIKeyAuthMiddleware(APIKeyAuth(cfg))
}

// ProviderSet is the Wire provider set for middleware.
var ProviderSet = wire.NewSet(
	ProvideAPIKeyAuth,
)
