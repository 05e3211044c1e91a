package repository

import "github.com/google/wire"

// ProviderSet is the Wire provider set for the repository layer.
var ProviderSet = wire.NewSet(
	NewRedisClient,
	NewTokenCache,
	NewExhaustionCache,
	NewRotationCursorCache,
	NewProjectIDCache,
	NewGoogleOAuthClient,
	NewUpstreamClient,
)
