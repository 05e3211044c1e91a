package server

import "github.com/google/wire"

// ProviderSet is the Wire provider set for the server layer.
var ProviderSet = wire.NewSet(
	SetupRouter,
	NewHTTPServer,
)
