package handler

import "github.com/google/wire"

// Handlers aggregates all HTTP handlers for router wiring.
type Handlers struct {
	Gateway *GatewayHandler
	Debug   *DebugHandler
}

func ProvideHandlers(gatewayHandler *GatewayHandler, debugHandler *DebugHandler) *Handlers {
	return &Handlers{
		Gateway: gatewayHandler,
		Debug:   debugHandler,
	}
}

// ProviderSet is the Wire provider set for all handlers.
var ProviderSet = wire.NewSet(
	NewGatewayHandler,
	NewDebugHandler,
	ProvideHandlers,
)
