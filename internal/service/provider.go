package service

import (
	"github.com/google/wire"

	"github.com/nordhen/credgate/internal/config"
)

// ProvideCredentialPool binds the pool to the environment slot enumerator.
func ProvideCredentialPool() *CredentialPool {
	return NewCredentialPool(config.CredentialSlots)
}

// ProviderSet is the Wire provider set for the service layer.
var ProviderSet = wire.NewSet(
	ProvideCredentialPool,
	NewExhaustionTracker,
	NewRotator,
	NewGatewayService,
)
